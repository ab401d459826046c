package promotion

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentgraph/talentgraph-go/internal/index"
	"github.com/talentgraph/talentgraph-go/internal/models"
)

func TestClassifyTiers(t *testing.T) {
	tests := []struct {
		name    string
		signals Signals
		tier    Tier
		reason  Reason
	}{
		{"contributor", Signals{Contributions: 3, Followers: 5000}, TierHigh, ReasonContributor},
		{"followers", Signals{Followers: 101}, TierHigh, ReasonFollowers},
		{"followers boundary", Signals{Followers: 100}, TierSkip, ""},
		{"name plus email", Signals{HasName: true, HasEmail: true}, TierHigh, ReasonIdentity},
		{"name plus location", Signals{HasName: true, HasLocation: true}, TierHigh, ReasonIdentity},
		{"name alone", Signals{HasName: true}, TierSkip, ""},
		{"tracked company", Signals{CompanyTracked: true}, TierMedium, ReasonCompany},
		{"public repos", Signals{PublicRepos: 11}, TierMedium, ReasonRepos},
		{"public repos boundary", Signals{PublicRepos: 10}, TierSkip, ""},
		{"bio keyword", Signals{Bio: "Building zk rollups"}, TierMedium, ReasonBio},
		{"nothing", Signals{}, TierSkip, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, reason := Classify(tt.signals)
			assert.Equal(t, tt.tier, tier)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

type fakeBackend struct {
	orphans       []models.GithubProfile
	contributions map[uuid.UUID]int
	companies     map[string]bool
	people        []*models.Person
	attached      map[uuid.UUID]uuid.UUID
	emails        []models.PersonEmail
}

func (f *fakeBackend) ListOrphanProfiles(_ context.Context, limit int) ([]models.GithubProfile, error) {
	if limit < len(f.orphans) {
		return f.orphans[:limit], nil
	}
	return f.orphans, nil
}

func (f *fakeBackend) ContributionCount(_ context.Context, id uuid.UUID) (int, error) {
	return f.contributions[id], nil
}

func (f *fakeBackend) CompanyNameExists(_ context.Context, name string) (bool, error) {
	return f.companies[name], nil
}

func (f *fakeBackend) CreatePerson(_ context.Context, p *models.Person) error {
	cp := *p
	f.people = append(f.people, &cp)
	return nil
}

func (f *fakeBackend) AttachProfileToPerson(_ context.Context, profileID, personID uuid.UUID) error {
	if f.attached == nil {
		f.attached = make(map[uuid.UUID]uuid.UUID)
	}
	f.attached[profileID] = personID
	return nil
}

func (f *fakeBackend) AddEmail(_ context.Context, e *models.PersonEmail) (bool, error) {
	f.emails = append(f.emails, *e)
	return true, nil
}

func TestRunPromotesContributor(t *testing.T) {
	profile := models.GithubProfile{
		ID:             uuid.New(),
		GithubUsername: "0age",
		Followers:      5000,
	}
	backend := &fakeBackend{
		orphans:       []models.GithubProfile{profile},
		contributions: map[uuid.UUID]int{profile.ID: 3},
	}
	ix := index.New()
	engine := New(backend, ix)

	stats, err := engine.Run(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Promoted)

	require.Len(t, backend.people, 1)
	person := backend.people[0]
	assert.Equal(t, "0age", models.StrVal(person.FullName), "pseudonymous username becomes the full name")
	assert.True(t, person.NeedsEnrichment)
	assert.Equal(t, person.ID, backend.attached[profile.ID])

	id, ok := ix.PersonByGithubUsername("0age")
	assert.True(t, ok)
	assert.Equal(t, person.ID, id)
}

func TestRunSkipsTierThree(t *testing.T) {
	backend := &fakeBackend{
		orphans: []models.GithubProfile{{
			ID:             uuid.New(),
			GithubUsername: "lurker",
			Followers:      2,
			PublicRepos:    1,
		}},
		contributions: map[uuid.UUID]int{},
	}
	engine := New(backend, index.New())

	stats, err := engine.Run(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, backend.people)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	profile := models.GithubProfile{ID: uuid.New(), GithubUsername: "whale", Followers: 9000}
	backend := &fakeBackend{
		orphans:       []models.GithubProfile{profile},
		contributions: map[uuid.UUID]int{},
	}
	engine := New(backend, index.New())
	engine.DryRun = true

	stats, err := engine.Run(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Promoted)
	assert.Empty(t, backend.people)
	assert.Empty(t, backend.attached)
}

func TestRunCopiesPublicEmail(t *testing.T) {
	name := "Vera Verified"
	email := "vera@example.com"
	profile := models.GithubProfile{
		ID:             uuid.New(),
		GithubUsername: "vera",
		Name:           &name,
		Email:          &email,
	}
	backend := &fakeBackend{
		orphans:       []models.GithubProfile{profile},
		contributions: map[uuid.UUID]int{},
	}
	engine := New(backend, index.New())

	stats, err := engine.Run(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Promoted)
	require.Len(t, backend.emails, 1)
	assert.Equal(t, email, backend.emails[0].Email)
	assert.True(t, backend.emails[0].IsPrimary)
	assert.Equal(t, "Vera Verified", models.StrVal(backend.people[0].FullName))
}

func TestRunTrackedCompanyTier(t *testing.T) {
	company := "@Uniswap Labs"
	profile := models.GithubProfile{
		ID:             uuid.New(),
		GithubUsername: "hired",
		Company:        &company,
	}
	backend := &fakeBackend{
		orphans:       []models.GithubProfile{profile},
		contributions: map[uuid.UUID]int{},
		companies:     map[string]bool{"Uniswap Labs": true},
	}
	engine := New(backend, index.New())

	stats, err := engine.Run(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Promoted)
}
