package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/config"
	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
	"github.com/talentgraph/talentgraph-go/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", appErr.DetailedString())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "talent",
	Short: "TalentGraph - crypto talent intelligence pipeline",
	Long: `TalentGraph ingests recruiting CSVs, crawls GitHub ecosystems, and
maintains a deduplicated people graph with enrichment, importance
scoring, and network path queries.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		// Background components log through slog; route it to the same
		// destination before anything constructs a child logger.
		if err := logging.Initialize(logging.DefaultConfig(verbose)); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .talentgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`TalentGraph {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(ecosystemsCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(companyCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(migrateCmd)
}
