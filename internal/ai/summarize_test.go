package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	lastSystem string
	lastUser   string
	response   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.response, nil
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return f.Complete(ctx, system, user)
}

func TestDossierRenderOmitsEmptyFields(t *testing.T) {
	d := Dossier{FullName: "Ada Lovelace", GithubUsername: "ada"}
	out := d.Render()
	assert.Contains(t, out, "Name: Ada Lovelace")
	assert.Contains(t, out, "GitHub username: ada")
	assert.NotContains(t, out, "Headline")
	assert.NotContains(t, out, "followers")
}

func TestSummarizeBuildsPromptFromDossier(t *testing.T) {
	fake := &fakeCompleter{response: "A strong protocol engineer."}
	d := Dossier{
		FullName:    "Ada Lovelace",
		Headline:    "Protocol Engineer",
		Employments: []string{"Engineer at Analytical Engines (2021-)"},
		Ecosystems:  []string{"Ethereum"},
	}

	out, err := Summarize(context.Background(), fake, d)
	require.NoError(t, err)
	assert.Equal(t, "A strong protocol engineer.", out)

	assert.Contains(t, fake.lastUser, "Ada Lovelace")
	assert.Contains(t, fake.lastUser, "Analytical Engines")
	assert.Contains(t, fake.lastUser, "Ethereum")
	assert.Contains(t, fake.lastSystem, "recruiting analyst")
}

func TestSummarizeRejectsEmptyDossier(t *testing.T) {
	_, err := Summarize(context.Background(), &fakeCompleter{}, Dossier{})
	require.Error(t, err)
}

func TestAnswerIncludesQuestion(t *testing.T) {
	fake := &fakeCompleter{response: "Yes, since 2021."}
	d := Dossier{FullName: "Ada Lovelace"}

	out, err := Answer(context.Background(), fake, d, "Has she worked on protocols?")
	require.NoError(t, err)
	assert.Equal(t, "Yes, since 2021.", out)
	assert.Contains(t, fake.lastUser, "Has she worked on protocols?")
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	_, err := Answer(context.Background(), &fakeCompleter{}, Dossier{FullName: "x"}, "  ")
	require.Error(t, err)
}

func TestDisabledClientErrors(t *testing.T) {
	c := &Client{provider: ProviderNone}
	assert.False(t, c.Enabled())
	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	_, err = c.CompleteJSON(context.Background(), "s", "u")
	require.Error(t, err)
}
