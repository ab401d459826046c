package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/talentgraph/talentgraph-go/internal/config"
	"github.com/talentgraph/talentgraph-go/internal/enrichment"
	"github.com/talentgraph/talentgraph-go/internal/scoring"
	"github.com/talentgraph/talentgraph-go/internal/scraper"
)

var enrichOnce bool

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run the enrichment workers and scheduler",
	Long: `Drains the enrichment queue: each worker scrapes a person's LinkedIn
profile and folds it into the graph. The scheduler sweeps hourly,
returning stale leases, re-queueing people flagged needs_enrichment, and
kicking off the importance sweep. Runs until interrupted unless --once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		apiKey := cfg.Scraper.APIKey
		if apiKey == "" {
			var err error
			if apiKey, err = config.NewCredentialManager().GetScraperAPIKey(); err != nil {
				return err
			}
			cfg.Scraper.APIKey = apiKey
		}
		if err := cfg.ValidateForEnrichment(); err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		ix, err := warmIndex(ctx, store)
		if err != nil {
			return err
		}

		provider := scraper.NewPhantomBuster(apiKey, cfg.Scraper.BaseURL)
		pool := enrichment.NewPool(store, provider, ix, enrichment.Options{
			Workers:     cfg.Queue.Workers,
			BatchSize:   cfg.Queue.BatchSize,
			CallSpacing: cfg.Scraper.CallSpacing,
		})

		if enrichOnce {
			n, err := pool.DrainOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Processed %d queue items\n", n)
			return nil
		}

		scheduler := enrichment.NewScheduler(store)
		scheduler.SweepEvery = cfg.Queue.SweepEvery
		scheduler.LeaseTTL = cfg.Queue.LeaseTTL
		scheduler.ScoreSweep = scoring.NewSweeper(store).Run

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return pool.Run(gctx, 30*time.Second) })
		g.Go(func() error { return scheduler.Run(gctx) })
		return g.Wait()
	},
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichOnce, "once", false, "drain one batch and exit")
}
