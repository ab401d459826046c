package discovery

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
	"github.com/talentgraph/talentgraph-go/internal/github"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

type fakeAPI struct {
	users        map[string]*github.User
	contributors map[string][]github.Contributor
	userRepos    map[string][]github.Repository
	orgRepos     map[string][]github.Repository
	orgMembers   map[string][]string
	repoStars    map[string]int
	userFetches  int
}

func (f *fakeAPI) FetchUser(_ context.Context, username string) (*github.User, error) {
	f.userFetches++
	if u, ok := f.users[strings.ToLower(username)]; ok {
		return u, nil
	}
	return nil, apperrors.NotFoundf("user %s", username)
}

func (f *fakeAPI) FetchRepository(_ context.Context, owner, name string) (*github.Repository, error) {
	full := owner + "/" + name
	if _, ok := f.contributors[full]; !ok {
		return nil, apperrors.NotFoundf("repo %s", full)
	}
	return &github.Repository{FullName: full, Stars: f.repoStars[full]}, nil
}

func (f *fakeAPI) FetchContributors(_ context.Context, owner, name string, _ int) ([]github.Contributor, error) {
	if c, ok := f.contributors[owner+"/"+name]; ok {
		return c, nil
	}
	return nil, apperrors.NotFoundf("repo %s/%s", owner, name)
}

func (f *fakeAPI) FetchUserRepos(_ context.Context, username string, _ int) ([]github.Repository, error) {
	return f.userRepos[strings.ToLower(username)], nil
}

func (f *fakeAPI) FetchOrgRepos(_ context.Context, org string, _ int) ([]github.Repository, error) {
	return f.orgRepos[strings.ToLower(org)], nil
}

func (f *fakeAPI) FetchOrgMembers(_ context.Context, org string, _ int) ([]string, error) {
	return f.orgMembers[strings.ToLower(org)], nil
}

func (f *fakeAPI) Remaining() int { return 4999 }

type fakeBackend struct {
	due           []models.GithubRepository
	profiles      map[string]uuid.UUID
	contributions map[[2]uuid.UUID]int
	synced        map[uuid.UUID]int
	notables      map[uuid.UUID][]storage.NotableContributor
	repoEcoNames  map[uuid.UUID][]string
	profileTags   map[uuid.UUID][]string
	newRepos      []string
}

func newFakeBackend(due ...models.GithubRepository) *fakeBackend {
	return &fakeBackend{
		due:           due,
		profiles:      make(map[string]uuid.UUID),
		contributions: make(map[[2]uuid.UUID]int),
		synced:        make(map[uuid.UUID]int),
		notables:      make(map[uuid.UUID][]storage.NotableContributor),
		repoEcoNames:  make(map[uuid.UUID][]string),
		profileTags:   make(map[uuid.UUID][]string),
	}
}

func (f *fakeBackend) ReposDueForSync(_ context.Context, _ time.Duration, limit int) ([]models.GithubRepository, error) {
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeBackend) UpsertGithubProfile(_ context.Context, p *models.GithubProfile) (uuid.UUID, bool, error) {
	key := strings.ToLower(p.GithubUsername)
	if id, ok := f.profiles[key]; ok {
		return id, false, nil
	}
	id := uuid.New()
	f.profiles[key] = id
	return id, true, nil
}

func (f *fakeBackend) UpsertGithubRepository(_ context.Context, r *models.GithubRepository) (uuid.UUID, error) {
	f.newRepos = append(f.newRepos, r.FullName)
	return uuid.New(), nil
}

func (f *fakeBackend) UpsertContribution(_ context.Context, c *models.GithubContribution) error {
	key := [2]uuid.UUID{c.ProfileID, c.RepositoryID}
	if existing := f.contributions[key]; c.ContributionCount > existing {
		f.contributions[key] = c.ContributionCount
	}
	return nil
}

func (f *fakeBackend) MarkRepositorySynced(_ context.Context, repoID uuid.UUID, contributors int) error {
	f.synced[repoID] = contributors
	return nil
}

func (f *fakeBackend) TopNotableContributors(_ context.Context, repoID uuid.UUID, _, _, limit int) ([]storage.NotableContributor, error) {
	notables := f.notables[repoID]
	if limit < len(notables) {
		return notables[:limit], nil
	}
	return notables, nil
}

func (f *fakeBackend) EcosystemNamesForRepo(_ context.Context, repoID uuid.UUID) ([]string, error) {
	return f.repoEcoNames[repoID], nil
}

func (f *fakeBackend) MergeEcosystemTags(_ context.Context, profileID uuid.UUID, tags []string) error {
	existing := f.profileTags[profileID]
	for _, tag := range tags {
		seen := false
		for _, have := range existing {
			if have == tag {
				seen = true
				break
			}
		}
		if !seen {
			existing = append(existing, tag)
		}
	}
	f.profileTags[profileID] = existing
	return nil
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.RepoPause = 0
	opts.CyclePause = 0
	return opts
}

func TestCycleRecordsContributions(t *testing.T) {
	repo := models.GithubRepository{ID: uuid.New(), FullName: "uniswap/v3-core"}
	backend := newFakeBackend(repo)
	api := &fakeAPI{
		users: map[string]*github.User{
			"alice": {Login: "alice", Followers: 10},
		},
		contributors: map[string][]github.Contributor{
			"uniswap/v3-core": {
				{Login: "alice", Type: "User", Contributions: 42},
				{Login: "deploy-bot", Type: "Bot", Contributions: 900},
				{Login: "uniswap", Type: "Organization", Contributions: 5},
			},
		},
	}
	engine := New(api, backend, fastOptions())

	stats, err := engine.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Repos)
	assert.Equal(t, 1, stats.Contributors, "bots and orgs are filtered")
	require.Len(t, backend.profiles, 1)

	profileID := backend.profiles["alice"]
	assert.Equal(t, 42, backend.contributions[[2]uuid.UUID{profileID, repo.ID}])
	assert.Equal(t, 1, backend.synced[repo.ID])
	assert.Contains(t, backend.newRepos, "uniswap/v3-core", "sweep refreshes repo metadata")
}

func TestCyclePropagatesEcosystemTags(t *testing.T) {
	repo := models.GithubRepository{ID: uuid.New(), FullName: "uniswap/v3-core"}
	backend := newFakeBackend(repo)
	backend.repoEcoNames[repo.ID] = []string{"ethereum", "uniswap"}
	api := &fakeAPI{
		users: map[string]*github.User{
			"alice": {Login: "alice"},
		},
		contributors: map[string][]github.Contributor{
			"uniswap/v3-core": {{Login: "alice", Type: "User", Contributions: 3}},
		},
	}
	engine := New(api, backend, fastOptions())

	_, err := engine.Cycle(context.Background())
	require.NoError(t, err)

	profileID := backend.profiles["alice"]
	assert.ElementsMatch(t, []string{"ethereum", "uniswap"}, backend.profileTags[profileID])
}

func TestCycleGoneContributorIsSkipped(t *testing.T) {
	repo := models.GithubRepository{ID: uuid.New(), FullName: "acme/widget"}
	backend := newFakeBackend(repo)
	api := &fakeAPI{
		users: map[string]*github.User{},
		contributors: map[string][]github.Contributor{
			"acme/widget": {{Login: "deleted-account", Type: "User", Contributions: 7}},
		},
	}
	engine := New(api, backend, fastOptions())

	stats, err := engine.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Repos, "a gone contributor does not fail the repository")
	assert.Empty(t, backend.contributions)
	assert.Equal(t, 1, backend.synced[repo.ID], "the contributor was still counted by the API")
}

func TestCycleGoneRepositoryIsMarkedSynced(t *testing.T) {
	repo := models.GithubRepository{ID: uuid.New(), FullName: "acme/deleted"}
	backend := newFakeBackend(repo)
	api := &fakeAPI{contributors: map[string][]github.Contributor{}}
	engine := New(api, backend, fastOptions())

	stats, err := engine.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Repos)
	assert.Equal(t, 0, backend.synced[repo.ID])
}

func TestCycleMemoizesUserFetches(t *testing.T) {
	repoA := models.GithubRepository{ID: uuid.New(), FullName: "acme/a"}
	repoB := models.GithubRepository{ID: uuid.New(), FullName: "acme/b"}
	backend := newFakeBackend(repoA, repoB)
	api := &fakeAPI{
		users: map[string]*github.User{
			"alice": {Login: "alice"},
		},
		contributors: map[string][]github.Contributor{
			"acme/a": {{Login: "alice", Type: "User", Contributions: 1}},
			"acme/b": {{Login: "alice", Type: "User", Contributions: 2}},
		},
	}
	engine := New(api, backend, fastOptions())

	_, err := engine.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.userFetches, "the same user is fetched once per process")
}

func TestCycleCountsOnlyInsertedProfilesAsNew(t *testing.T) {
	repo := models.GithubRepository{ID: uuid.New(), FullName: "acme/a"}
	backend := newFakeBackend(repo)
	backend.profiles["alice"] = uuid.New() // stored by an earlier run
	api := &fakeAPI{
		users: map[string]*github.User{
			"alice": {Login: "alice"},
			"carol": {Login: "carol"},
		},
		contributors: map[string][]github.Contributor{
			"acme/a": {
				{Login: "alice", Type: "User", Contributions: 1},
				{Login: "carol", Type: "User", Contributions: 2},
			},
		},
	}
	engine := New(api, backend, fastOptions())

	stats, err := engine.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NewProfiles, "a revisited profile is not new")
	assert.Equal(t, 2, stats.Contributors)
}

func TestCycleExpandsNotableDevelopers(t *testing.T) {
	repo := models.GithubRepository{ID: uuid.New(), FullName: "uniswap/v3-core"}
	backend := newFakeBackend(repo)
	backend.notables[repo.ID] = []storage.NotableContributor{
		{ProfileID: uuid.New(), GithubUsername: "whale", Followers: 5000, PublicRepos: 80},
	}
	api := &fakeAPI{
		users:        map[string]*github.User{},
		contributors: map[string][]github.Contributor{"uniswap/v3-core": {}},
		userRepos: map[string][]github.Repository{
			"whale": {{FullName: "whale/sidecar", Stars: 300}},
		},
	}
	engine := New(api, backend, fastOptions())

	stats, err := engine.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NewRepos)
	assert.Contains(t, backend.newRepos, "whale/sidecar")
}

func TestSeedOrgPrimesFrontier(t *testing.T) {
	backend := newFakeBackend()
	api := &fakeAPI{
		users: map[string]*github.User{
			"alice": {Login: "alice", Followers: 200},
			"bob":   {Login: "bob"},
		},
		orgRepos: map[string][]github.Repository{
			"uniswap": {
				{FullName: "uniswap/v3-core", Stars: 4000},
				{FullName: "uniswap/interface", Stars: 3000},
			},
		},
		orgMembers: map[string][]string{
			"uniswap": {"alice", "bob", "deleted-member"},
		},
	}
	engine := New(api, backend, fastOptions())

	stats, err := engine.SeedOrg(context.Background(), "uniswap", 5)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.NewRepos)
	assert.ElementsMatch(t, []string{"uniswap/v3-core", "uniswap/interface"}, backend.newRepos)
	assert.Equal(t, 2, stats.NewProfiles, "gone members are skipped")
	assert.Contains(t, backend.profiles, "alice")
	assert.Contains(t, backend.profiles, "bob")
}

func TestSplitFullName(t *testing.T) {
	owner, name, ok := splitFullName("uniswap/v3-core")
	require.True(t, ok)
	assert.Equal(t, "uniswap", owner)
	assert.Equal(t, "v3-core", name)

	_, _, ok = splitFullName("no-slash")
	assert.False(t, ok)
}

func TestRepoFullName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://github.com/Uniswap/v3-core", "uniswap/v3-core"},
		{"http://www.github.com/acme/widget.git", "acme/widget"},
		{"https://github.com/acme/widget/tree/main", "acme/widget"},
		{"https://gitlab.com/acme/widget", ""},
		{"https://github.com/acme", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, repoFullName(tt.in), tt.in)
	}
}
