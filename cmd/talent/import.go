package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/importer"
	"github.com/talentgraph/talentgraph-go/internal/resolve"
)

var importSource string

var importCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Import a recruiting CSV into the people graph",
	Long: `Reads a CSV export (LinkedIn recruiter, Dover, or similar header
layouts), resolves each row against the graph, and creates or enriches
people, companies, emails, education, and employment. Re-importing the
same file is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()

		rows, err := importer.ReadRows(f)
		if err != nil {
			return fmt.Errorf("parse csv: %w", err)
		}
		logger.WithField("rows", len(rows)).Info("CSV parsed")

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		ix, err := warmIndex(ctx, store)
		if err != nil {
			return err
		}

		resolver := resolve.New(ix, store)
		imp := importer.New(store, ix, resolver, logger, importSource)
		if cfg.Importer.BatchSize > 0 {
			imp.BatchSize = cfg.Importer.BatchSize
		}

		report, err := imp.Run(ctx, rows)
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d rows: %d created, %d enriched, %d skipped, %d errors\n",
			report.Rows, report.Created, report.Enriched, report.Skipped, len(report.Errors))
		for reason, n := range report.SkipReasons {
			fmt.Printf("  skipped %d: %s\n", n, reason)
		}
		for _, re := range report.Errors {
			fmt.Printf("  line %d: %s\n", re.Line, re.Reason)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "csv", "provenance tag written with every row")
}
