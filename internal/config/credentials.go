package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// CredentialManager resolves secrets through a priority chain:
// environment variable → OS keychain → interactive prompt.
type CredentialManager struct {
	keyring *KeyringManager
}

// NewCredentialManager creates a credential manager.
func NewCredentialManager() *CredentialManager {
	return &CredentialManager{keyring: NewKeyringManager()}
}

// GetGitHubToken retrieves the GitHub token via the priority chain.
func (cm *CredentialManager) GetGitHubToken() (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}
	if token, err := cm.keyring.GetGitHubToken(); err == nil && token != "" {
		return token, nil
	}
	return "", fmt.Errorf("no GitHub token found; set GITHUB_TOKEN or run 'talent configure'")
}

// GetScraperAPIKey retrieves the PhantomBuster key via the priority chain.
func (cm *CredentialManager) GetScraperAPIKey() (string, error) {
	if key := os.Getenv("PHANTOMBUSTER_API_KEY"); key != "" {
		return key, nil
	}
	if key, err := cm.keyring.GetScraperAPIKey(); err == nil && key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no PhantomBuster API key found; set PHANTOMBUSTER_API_KEY or run 'talent configure'")
}

// PromptAndStoreGitHubToken interactively reads a token without echo and
// stores it in the keychain.
func (cm *CredentialManager) PromptAndStoreGitHubToken() error {
	token, err := promptSecret("GitHub token (https://github.com/settings/tokens): ")
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("empty token")
	}
	return cm.keyring.SetGitHubToken(token)
}

// PromptAndStoreScraperKey interactively reads the scraper key without
// echo and stores it in the keychain.
func (cm *CredentialManager) PromptAndStoreScraperKey() error {
	key, err := promptSecret("PhantomBuster API key: ")
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("empty key")
	}
	return cm.keyring.SetScraperAPIKey(key)
}

// ClearAll removes every stored credential from the keychain.
func (cm *CredentialManager) ClearAll() error {
	return cm.keyring.Clear()
}

// promptSecret reads a secret from the terminal without echo, falling back
// to plain stdin when not attached to a TTY.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
