package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/models"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show enrichment queue state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := store.QueueCounts(ctx)
		if err != nil {
			return err
		}
		for _, status := range []models.QueueStatus{
			models.QueuePending, models.QueueInProgress, models.QueueCompleted, models.QueueFailed,
		} {
			fmt.Printf("%-12s %d\n", status, counts[status])
		}
		return nil
	},
}

var queueAddCmd = &cobra.Command{
	Use:   "add <person>",
	Short: "Queue a person for enrichment",
	Args:  cobra.ExactArgs(1),
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
		personID, err := resolvePersonArg(ix, args[0])
		if err != nil {
			return err
		}

		added, err := store.Enqueue(ctx, personID, queueAddPriority)
		if err != nil {
			return err
		}
		if !added {
			fmt.Println("Already queued")
			return nil
		}
		fmt.Printf("Queued %s at priority %d\n", personID, queueAddPriority)
		return nil
	},
}

var queueAddPriority int

func init() {
	queueAddCmd.Flags().IntVar(&queueAddPriority, "priority", 0, "queue priority (higher drains first)")
	queueCmd.AddCommand(queueAddCmd)
}
