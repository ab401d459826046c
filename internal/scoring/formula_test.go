package scoring

import (
	"bytes"
	"context"
	"math"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentgraph/talentgraph-go/internal/storage"
)

func TestRepositoryImportance(t *testing.T) {
	assert.Zero(t, RepositoryImportance(0, 0, 0, 0))

	// 1000 stars, 200 forks, 40 contributors, 2 ecosystems.
	want := math.Log1p(1000)*10 + math.Log1p(200)*5 + 40*2 + 2*15
	assert.InDelta(t, want, RepositoryImportance(1000, 200, 40, 2), 1e-9)

	// Log damping: a 10x star gap moves the score far less than 10x.
	small := RepositoryImportance(1000, 0, 0, 0)
	big := RepositoryImportance(10000, 0, 0, 0)
	assert.Less(t, big, small*2)
	assert.Greater(t, big, small)
}

func TestContributionWeight(t *testing.T) {
	assert.Zero(t, ContributionWeight(0))
	assert.Zero(t, ContributionWeight(-3))
	assert.InDelta(t, 0.5, ContributionWeight(25), 1e-9)
	assert.InDelta(t, 1.0, ContributionWeight(50), 1e-9)
	assert.InDelta(t, 1.0, ContributionWeight(5000), 1e-9, "saturates at 50")
}

func TestDeveloperImportance(t *testing.T) {
	want := math.Log1p(5000)*8 + 30 + 120.5
	assert.InDelta(t, want, DeveloperImportance(5000, 30, 120.5), 1e-9)
	assert.Zero(t, DeveloperImportance(0, 0, 0))
}

type fakeScoreBackend struct {
	repos    []storage.RepoScoreRow
	profiles []storage.DeveloperScoreRow

	repoScores    map[uuid.UUID]float64
	profileScores map[uuid.UUID]float64
	repoCommits   int
}

func newFakeScoreBackend() *fakeScoreBackend {
	return &fakeScoreBackend{
		repoScores:    make(map[uuid.UUID]float64),
		profileScores: make(map[uuid.UUID]float64),
	}
}

// uuidLess mirrors Postgres uuid ordering (bytewise).
func uuidLess(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func (f *fakeScoreBackend) ReposNeedingScores(_ context.Context, limit int, after uuid.UUID, force bool) ([]storage.RepoScoreRow, error) {
	rows := append([]storage.RepoScoreRow(nil), f.repos...)
	sort.Slice(rows, func(i, j int) bool { return uuidLess(rows[i].ID, rows[j].ID) })

	var out []storage.RepoScoreRow
	for _, r := range rows {
		if !uuidLess(after, r.ID) {
			continue
		}
		if !force && f.repoScores[r.ID] != 0 {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeScoreBackend) ProfilesNeedingScores(_ context.Context, limit int, after uuid.UUID, force bool) ([]storage.DeveloperScoreRow, error) {
	rows := append([]storage.DeveloperScoreRow(nil), f.profiles...)
	sort.Slice(rows, func(i, j int) bool { return uuidLess(rows[i].ID, rows[j].ID) })

	var out []storage.DeveloperScoreRow
	for _, p := range rows {
		if !uuidLess(after, p.ID) {
			continue
		}
		if !force && f.profileScores[p.ID] != 0 {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeScoreBackend) UpdateRepositoryScores(_ context.Context, updates []storage.ScoreUpdate) error {
	f.repoCommits++
	for _, u := range updates {
		f.repoScores[u.ID] = u.Score
	}
	return nil
}

func (f *fakeScoreBackend) UpdateProfileScores(_ context.Context, updates []storage.ScoreUpdate) error {
	for _, u := range updates {
		f.profileScores[u.ID] = u.Score
	}
	return nil
}

func (f *fakeScoreBackend) ScoreBacklog(context.Context) (int, int, error) {
	repos, profiles := 0, 0
	for _, r := range f.repos {
		if f.repoScores[r.ID] == 0 {
			repos++
		}
	}
	for _, p := range f.profiles {
		if f.profileScores[p.ID] == 0 {
			profiles++
		}
	}
	return repos, profiles, nil
}

func TestSweepScoresAllRows(t *testing.T) {
	backend := newFakeScoreBackend()
	repoID := uuid.New()
	profileID := uuid.New()
	backend.repos = []storage.RepoScoreRow{
		{ID: repoID, Stars: 100, Forks: 10, ContributorCount: 5, EcosystemCount: 1},
	}
	backend.profiles = []storage.DeveloperScoreRow{
		{ID: profileID, Followers: 200, PublicRepos: 12, WeightedRepoSum: 33.0},
	}

	sweeper := NewSweeper(backend)
	require.NoError(t, sweeper.Run(context.Background()))

	assert.InDelta(t, RepositoryImportance(100, 10, 5, 1), backend.repoScores[repoID], 1e-9)
	assert.InDelta(t, DeveloperImportance(200, 12, 33.0), backend.profileScores[profileID], 1e-9)
}

func TestSweepBatchesAndResumes(t *testing.T) {
	backend := newFakeScoreBackend()
	for i := 0; i < 5; i++ {
		backend.repos = append(backend.repos, storage.RepoScoreRow{ID: uuid.New(), Stars: i + 1})
	}

	sweeper := NewSweeper(backend)
	sweeper.BatchSize = 2
	require.NoError(t, sweeper.SweepRepositories(context.Background()))

	assert.Equal(t, 3, backend.repoCommits, "5 rows at batch size 2")
	for _, r := range backend.repos {
		assert.NotZero(t, backend.repoScores[r.ID])
	}

	// A second unforced sweep finds nothing to do.
	backend.repoCommits = 0
	require.NoError(t, sweeper.SweepRepositories(context.Background()))
	assert.Zero(t, backend.repoCommits)
}

func TestSweepZeroSignalBacklogTerminates(t *testing.T) {
	// Bare repositories (fresh off a taxonomy import) recompute to exactly
	// zero and stay in the null-or-zero filter; the cursor must still
	// carry the sweep past them.
	backend := newFakeScoreBackend()
	for i := 0; i < 5; i++ {
		backend.repos = append(backend.repos, storage.RepoScoreRow{ID: uuid.New()})
	}

	sweeper := NewSweeper(backend)
	sweeper.BatchSize = 2
	require.NoError(t, sweeper.SweepRepositories(context.Background()))
	assert.Equal(t, 3, backend.repoCommits, "5 zero-signal rows at batch size 2, each read once")
}

func TestSweepForceRescoresEverything(t *testing.T) {
	backend := newFakeScoreBackend()
	stale := uuid.New()
	backend.repos = []storage.RepoScoreRow{{ID: stale, Stars: 10}}
	backend.repoScores[stale] = 999.0

	sweeper := NewSweeper(backend)
	require.NoError(t, sweeper.SweepRepositories(context.Background()))
	assert.InDelta(t, 999.0, backend.repoScores[stale], 1e-9, "unforced sweep skips scored rows")

	sweeper.Force = true
	require.NoError(t, sweeper.SweepRepositories(context.Background()))
	assert.InDelta(t, RepositoryImportance(10, 0, 0, 0), backend.repoScores[stale], 1e-9)
}
