package main

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/models"
)

var openGithub bool

var openCmd = &cobra.Command{
	Use:   "open <person>",
	Short: "Open a person's LinkedIn (or GitHub) page in the browser",
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

		person, err := store.GetPerson(ctx, personID)
		if err != nil {
			return err
		}

		url := models.StrVal(person.LinkedinURL)
		if openGithub || url == "" {
			profiles, err := store.ProfilesForPerson(ctx, personID)
			if err != nil {
				return err
			}
			if len(profiles) > 0 {
				url = "https://github.com/" + profiles[0].GithubUsername
			}
		}
		if url == "" {
			return fmt.Errorf("person %s has neither a LinkedIn URL nor a GitHub profile", personID)
		}

		fmt.Printf("Opening %s\n", url)
		return browser.OpenURL(url)
	},
}

func init() {
	openCmd.Flags().BoolVar(&openGithub, "github", false, "prefer the GitHub profile")
}
