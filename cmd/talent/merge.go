package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/merge"
)

var mergeLive bool

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Deduplicate companies and people",
	Long: `Groups duplicate companies by normalized name and duplicate people by
identical full name, keeps the best-scored record of each group, and
moves edges to it. Known keep-separate pairs (e.g. a Labs and a
Foundation sharing a brand) are never merged.

Defaults to a dry run that prints the plan. --live deletes duplicate
rows and asks for the confirmation token MERGE first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		engine := merge.NewEngine(store)

		if !mergeLive {
			companyPlans, err := engine.PlanCompanies(ctx)
			if err != nil {
				return err
			}
			personPlans, err := engine.PlanPeople(ctx)
			if err != nil {
				return err
			}

			for _, plan := range companyPlans {
				fmt.Printf("company %q keeps %s, merges %d duplicate(s)\n",
					plan.Canonical.CompanyName, plan.Canonical.ID, len(plan.DuplicateIDs()))
			}
			for _, plan := range personPlans {
				fmt.Printf("person %q keeps %s, merges %d duplicate(s)\n",
					plan.Keeper.FullName, plan.Keeper.ID, len(plan.Duplicates))
			}
			fmt.Printf("\nDry run: %d company group(s), %d person group(s). Re-run with --live to execute.\n",
				len(companyPlans), len(personPlans))
			return nil
		}

		fmt.Print("This deletes duplicate rows. Type MERGE to continue: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read confirmation: %w", err)
		}
		if strings.TrimSpace(line) != "MERGE" {
			return fmt.Errorf("merge aborted")
		}

		companyStats, err := engine.MergeCompanies(ctx)
		if err != nil {
			return err
		}
		personStats, err := engine.MergePeople(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Companies: %d groups, %d merged, %d edges moved\n",
			companyStats.Groups, companyStats.Merged, companyStats.EdgesMoved)
		fmt.Printf("People: %d groups, %d merged, %d skipped (owned edges)\n",
			personStats.Groups, personStats.Merged, personStats.SkippedHasEdge)
		return nil
	},
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeLive, "live", false, "execute the merge instead of printing the plan")
}
