package main

import (
	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/models"
)

// personRecord is the full JSON view the show command prints.
type personRecord struct {
	Person     *models.Person         `json:"person"`
	Emails     []models.PersonEmail   `json:"emails,omitempty"`
	Employment []models.Employment    `json:"employment,omitempty"`
	Profiles   []models.GithubProfile `json:"github_profiles,omitempty"`
}

var showCmd = &cobra.Command{
	Use:   "show <person>",
	Short: "Print everything the graph knows about a person",
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

		var rec personRecord
		if rec.Person, err = store.GetPerson(ctx, personID); err != nil {
			return err
		}
		if rec.Emails, err = store.ListEmails(ctx, personID); err != nil {
			return err
		}
		if rec.Employment, err = store.ListEmployment(ctx, personID); err != nil {
			return err
		}
		if rec.Profiles, err = store.ProfilesForPerson(ctx, personID); err != nil {
			return err
		}
		return printJSON(rec)
	},
}
