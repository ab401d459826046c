package config

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain.
	KeyringService = "TalentGraph"

	// KeyringUser is the account identifier for stored credentials.
	KeyringUser = "default"

	keyringGitHubTokenItem   = "github-token"
	keyringScraperAPIKeyItem = "phantombuster-api-key"
	keyringOpenAIKeyItem     = "openai-api-key"
)

// KeyringManager stores credentials in the OS keychain so they never live
// in plaintext config files.
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a keyring manager.
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

func (km *KeyringManager) set(item, value string) error {
	if err := keyring.Set(KeyringService, KeyringUser+":"+item, value); err != nil {
		return fmt.Errorf("keyring set %s: %w", item, err)
	}
	km.logger.Debug("credential stored in keychain", "item", item)
	return nil
}

func (km *KeyringManager) get(item string) (string, error) {
	val, err := keyring.Get(KeyringService, KeyringUser+":"+item)
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", item, err)
	}
	return val, nil
}

func (km *KeyringManager) delete(item string) error {
	if err := keyring.Delete(KeyringService, KeyringUser+":"+item); err != nil {
		return fmt.Errorf("keyring delete %s: %w", item, err)
	}
	return nil
}

// SetGitHubToken stores the GitHub token.
func (km *KeyringManager) SetGitHubToken(token string) error {
	return km.set(keyringGitHubTokenItem, token)
}

// GetGitHubToken retrieves the GitHub token.
func (km *KeyringManager) GetGitHubToken() (string, error) {
	return km.get(keyringGitHubTokenItem)
}

// SetScraperAPIKey stores the PhantomBuster API key.
func (km *KeyringManager) SetScraperAPIKey(key string) error {
	return km.set(keyringScraperAPIKeyItem, key)
}

// GetScraperAPIKey retrieves the PhantomBuster API key.
func (km *KeyringManager) GetScraperAPIKey() (string, error) {
	return km.get(keyringScraperAPIKeyItem)
}

// SetOpenAIKey stores the OpenAI API key.
func (km *KeyringManager) SetOpenAIKey(key string) error {
	return km.set(keyringOpenAIKeyItem, key)
}

// GetOpenAIKey retrieves the OpenAI API key.
func (km *KeyringManager) GetOpenAIKey() (string, error) {
	return km.get(keyringOpenAIKeyItem)
}

// Clear removes all stored credentials.
func (km *KeyringManager) Clear() error {
	var firstErr error
	for _, item := range []string{keyringGitHubTokenItem, keyringScraperAPIKeyItem, keyringOpenAIKeyItem} {
		if err := km.delete(item); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
