package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/cache"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show graph size and queue state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}

		redis := openCache(ctx)
		defer redis.Close()

		var stats *storage.Stats
		key := cache.Key("stats", "graph")
		var cached storage.Stats
		if redis.Get(ctx, key, &cached) {
			stats = &cached
		} else {
			stats, err = store.GraphStats(ctx)
			if err != nil {
				return err
			}
			redis.Set(ctx, key, stats, cache.TTLStats)
		}

		fmt.Printf("People          %d\n", stats.People)
		fmt.Printf("Companies       %d\n", stats.Companies)
		fmt.Printf("Employment      %d\n", stats.Employment)
		fmt.Printf("GitHub profiles %d\n", stats.Profiles)
		fmt.Printf("Repositories    %d\n", stats.Repositories)
		fmt.Printf("Contributions   %d\n", stats.Contributions)
		fmt.Printf("Ecosystems      %d\n", stats.Ecosystems)
		fmt.Printf("Queue pending   %d\n", stats.QueuePending)
		return nil
	},
}
