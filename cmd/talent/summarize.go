package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/ai"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

var summarizeAsk string

var summarizeCmd = &cobra.Command{
	Use:   "summarize <person>",
	Short: "AI candidate brief from graph data",
	Long: `Builds a dossier from the person's graph record (employment, GitHub
activity, ecosystems) and asks the configured AI provider for a short
brief. --ask answers a free-form question instead. Requires
OPENAI_API_KEY or GEMINI_API_KEY and ai.provider in the config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := ai.NewClient(ctx, cfg.AI)
		if err != nil {
			return err
		}
		if !client.Enabled() {
			return fmt.Errorf("no AI provider configured; set ai.provider and OPENAI_API_KEY or GEMINI_API_KEY")
		}
		logger.WithField("provider", string(client.ActiveProvider())).Debug("AI client ready")

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

		dossier, err := buildDossier(ctx, store, personID)
		if err != nil {
			return err
		}

		var text string
		if summarizeAsk != "" {
			text, err = ai.Answer(ctx, client, dossier, summarizeAsk)
		} else {
			text, err = ai.Summarize(ctx, client, dossier)
		}
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

// buildDossier gathers everything the graph knows about a person.
func buildDossier(ctx context.Context, store *storage.Store, personID uuid.UUID) (ai.Dossier, error) {
	var d ai.Dossier

	person, err := store.GetPerson(ctx, personID)
	if err != nil {
		return d, err
	}
	d.FullName = models.StrVal(person.FullName)
	d.Headline = models.StrVal(person.Headline)
	d.Location = models.StrVal(person.Location)

	employments, err := store.ListEmployment(ctx, personID)
	if err != nil {
		return d, err
	}
	for _, e := range employments {
		company, err := store.GetCompany(ctx, e.CompanyID)
		if err != nil {
			continue
		}
		entry := models.StrVal(e.Title)
		if entry == "" {
			entry = "Unknown role"
		}
		entry += " at " + company.CompanyName
		if e.StartDate != nil {
			end := "present"
			if e.EndDate != nil {
				end = fmt.Sprint(e.EndDate.Year())
			}
			entry += fmt.Sprintf(" (%d-%s)", e.StartDate.Year(), end)
		}
		d.Employments = append(d.Employments, entry)
	}

	profiles, err := store.ProfilesForPerson(ctx, personID)
	if err != nil {
		return d, err
	}
	if len(profiles) > 0 {
		profile := profiles[0]
		d.GithubUsername = profile.GithubUsername
		d.Followers = profile.Followers
		d.Ecosystems = profile.EcosystemTags

		repos, err := store.TopContributions(ctx, profile.ID, 5)
		if err != nil {
			return d, err
		}
		for _, r := range repos {
			d.TopRepos = append(d.TopRepos,
				fmt.Sprintf("%s (%d stars, %d contributions)", r.FullName, r.Stars, r.ContributionCount))
		}
	}
	return d, nil
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeAsk, "ask", "", "ask a question instead of writing a brief")
}
