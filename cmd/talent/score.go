package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/scoring"
)

var (
	scoreRepos      bool
	scoreDevelopers bool
	scoreForce      bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Recompute importance scores",
	Long: `Sweeps repositories and developers with a null-or-zero importance
score, committing every 1000 rows. Interrupted sweeps resume where they
left off. --force rescores every row. Default sweeps both kinds, repos
first so developer scores see fresh repo scores.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		sweeper := scoring.NewSweeper(store)
		sweeper.Force = scoreForce

		// No kind flag means both.
		both := scoreRepos == scoreDevelopers
		if both || scoreRepos {
			if err := sweeper.SweepRepositories(ctx); err != nil {
				return err
			}
		}
		if both || scoreDevelopers {
			if err := sweeper.SweepDevelopers(ctx); err != nil {
				return err
			}
		}

		repos, profiles, err := store.ScoreBacklog(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Remaining unscored: %d repositories, %d developers\n", repos, profiles)
		return nil
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreRepos, "repos", false, "sweep repositories only")
	scoreCmd.Flags().BoolVar(&scoreDevelopers, "developers", false, "sweep developers only")
	scoreCmd.Flags().BoolVar(&scoreForce, "force", false, "rescore rows that already have a score")
}
