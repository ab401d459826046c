package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/config"
)

var (
	configureClear bool
	configureInit  bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Store API credentials in the OS keychain",
	Long: `Prompts for the GitHub token and PhantomBuster API key without echo
and stores them in the OS keychain. Environment variables always take
precedence over stored credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cm := config.NewCredentialManager()

		if configureClear {
			if err := cm.ClearAll(); err != nil {
				return fmt.Errorf("clear credentials: %w", err)
			}
			fmt.Println("Stored credentials cleared")
			return nil
		}

		if configureInit {
			path := config.DefaultPath()
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		}

		if err := cm.PromptAndStoreGitHubToken(); err != nil {
			return fmt.Errorf("store github token: %w", err)
		}
		if err := cm.PromptAndStoreScraperKey(); err != nil {
			return fmt.Errorf("store scraper key: %w", err)
		}
		fmt.Println("Credentials stored in OS keychain")
		return nil
	},
}

func init() {
	configureCmd.Flags().BoolVar(&configureClear, "clear", false, "remove stored credentials")
	configureCmd.Flags().BoolVar(&configureInit, "init", false, "write a starter config file (secrets redacted)")
}
