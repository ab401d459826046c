package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/promotion"
)

var (
	promoteDryRun bool
	promoteLimit  int
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote qualifying orphan GitHub profiles into people",
	Long: `Scans GitHub profiles without an owning person and promotes those
with contribution, follower, identity, or ecosystem signals. Promoted
people get placeholder names and are flagged for enrichment when their
scalar fields are sparse.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		ix, err := warmIndex(ctx, store)
		if err != nil {
			return err
		}

		engine := promotion.New(store, ix)
		engine.DryRun = promoteDryRun

		stats, err := engine.Run(ctx, promoteLimit)
		if err != nil {
			return err
		}
		verb := "promoted"
		if promoteDryRun {
			verb = "would promote"
		}
		fmt.Printf("Scanned %d orphan profiles: %s %d, skipped %d\n",
			stats.Scanned, verb, stats.Promoted, stats.Skipped)
		return nil
	},
}

func init() {
	promoteCmd.Flags().BoolVar(&promoteDryRun, "dry-run", false, "classify and count without writing")
	promoteCmd.Flags().IntVar(&promoteLimit, "limit", 1000, "maximum profiles to scan")
}
