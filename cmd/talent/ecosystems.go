package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/discovery"
)

var ecosystemsPriorityOnly bool

var ecosystemsCmd = &cobra.Command{
	Use:   "ecosystems <jsonl-file>",
	Short: "Load the crypto ecosystem taxonomy",
	Long: `Imports an Electric Capital style ecosystems JSONL export: one
ecosystem per line with its repositories. Priority ecosystems get tier 1
so discovery crawls them first. Re-runs are no-ops.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open taxonomy: %w", err)
		}
		defer f.Close()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		imp := discovery.NewTaxonomyImporter(store)
		imp.PriorityOnly = ecosystemsPriorityOnly

		stats, err := imp.Run(ctx, f)
		if err != nil {
			return err
		}
		fmt.Printf("Taxonomy loaded: %d lines, %d ecosystems, %d repositories, %d links, %d companies linked, %d skipped\n",
			stats.Lines, stats.Ecosystems, stats.Repositories, stats.Links, stats.CompaniesLinked, stats.Skipped)
		return nil
	},
}

func init() {
	ecosystemsCmd.Flags().BoolVar(&ecosystemsPriorityOnly, "priority-only", false, "import only the priority ecosystem list")
}
