package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/config"
	"github.com/talentgraph/talentgraph-go/internal/discovery"
	"github.com/talentgraph/talentgraph-go/internal/github"
)

var (
	discoverOnce bool
	discoverOrg  string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run the GitHub discovery crawler",
	Long: `Walks repositories due for a contributor sweep (priority tier, then
stars), records contribution edges, and expands through notable
developers' repositories. Runs until interrupted unless --once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		token := cfg.GitHub.Token
		if token == "" {
			var err error
			if token, err = config.NewCredentialManager().GetGitHubToken(); err != nil {
				return err
			}
			cfg.GitHub.Token = token
		}
		if err := cfg.ValidateForDiscovery(); err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		userCache, err := github.OpenUserCache(cfg.GitHub.CachePath, 24*time.Hour)
		if err != nil {
			logger.WithError(err).Warn("GitHub user cache unavailable, continuing without it")
		} else {
			defer userCache.Close()
		}

		client := github.NewClient(token, cfg.GitHub.RateLimit, userCache)
		remaining, reset, err := client.CheckRateLimit(ctx)
		if err != nil {
			return fmt.Errorf("check rate limit: %w", err)
		}
		logger.WithFields(map[string]interface{}{
			"remaining": remaining,
			"reset":     reset.Format(time.Kitchen),
		}).Info("GitHub budget")

		engine := discovery.New(client, store, discovery.Options{
			ReposPerCycle:    cfg.Discovery.ReposPerCycle,
			SyncWindow:       cfg.Discovery.SyncWindow,
			RepoPause:        cfg.Discovery.RepoPause,
			CyclePause:       cfg.Discovery.CyclePause,
			MaxContribPages:  cfg.Discovery.MaxContribPages,
			ExpandDevelopers: cfg.Discovery.ExpandDevelopers,
		})

		if discoverOrg != "" {
			stats, err := engine.SeedOrg(ctx, discoverOrg, 5)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %s: %d repos, %d member profiles\n",
				discoverOrg, stats.NewRepos, stats.NewProfiles)
		}

		if discoverOnce {
			stats, err := engine.Cycle(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Cycle complete: %d repos, %d contributors, %d new profiles, %d new repos, %d errors\n",
				stats.Repos, stats.Contributors, stats.NewProfiles, stats.NewRepos, stats.Errors)
			return nil
		}
		return engine.Run(ctx)
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverOnce, "once", false, "run a single cycle and exit")
	discoverCmd.Flags().StringVar(&discoverOrg, "org", "", "seed the frontier from a GitHub organization first")
}
