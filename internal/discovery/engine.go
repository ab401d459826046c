// Package discovery runs the perpetual GitHub crawler: each cycle walks
// repositories due for a contributor sweep, records contribution edges,
// and expands the frontier through notable developers' own repositories.
// Every write is idempotent, so interrupted cycles lose nothing.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/google/uuid"
	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
	"github.com/talentgraph/talentgraph-go/internal/github"
	"github.com/talentgraph/talentgraph-go/internal/models"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

// API is the GitHub surface the engine calls. *github.Client satisfies it.
type API interface {
	FetchUser(ctx context.Context, username string) (*github.User, error)
	FetchRepository(ctx context.Context, owner, name string) (*github.Repository, error)
	FetchContributors(ctx context.Context, owner, name string, maxPages int) ([]github.Contributor, error)
	FetchUserRepos(ctx context.Context, username string, maxPages int) ([]github.Repository, error)
	FetchOrgRepos(ctx context.Context, org string, maxPages int) ([]github.Repository, error)
	FetchOrgMembers(ctx context.Context, org string, maxPages int) ([]string, error)
	Remaining() int
}

// Backend is the storage surface the engine writes through.
// *storage.Store satisfies it.
type Backend interface {
	ReposDueForSync(ctx context.Context, window time.Duration, limit int) ([]models.GithubRepository, error)
	UpsertGithubProfile(ctx context.Context, p *models.GithubProfile) (uuid.UUID, bool, error)
	UpsertGithubRepository(ctx context.Context, r *models.GithubRepository) (uuid.UUID, error)
	UpsertContribution(ctx context.Context, c *models.GithubContribution) error
	MarkRepositorySynced(ctx context.Context, repoID uuid.UUID, contributors int) error
	TopNotableContributors(ctx context.Context, repoID uuid.UUID, minFollowers, minRepos, limit int) ([]storage.NotableContributor, error)
	EcosystemNamesForRepo(ctx context.Context, repoID uuid.UUID) ([]string, error)
	MergeEcosystemTags(ctx context.Context, profileID uuid.UUID, tags []string) error
}

// Options bound one cycle's work.
type Options struct {
	ReposPerCycle    int
	SyncWindow       time.Duration
	RepoPause        time.Duration
	CyclePause       time.Duration
	MaxContribPages  int
	ExpandDevelopers int
}

// DefaultOptions mirror the production cadence.
func DefaultOptions() Options {
	return Options{
		ReposPerCycle:    10,
		SyncWindow:       7 * 24 * time.Hour,
		RepoPause:        5 * time.Second,
		CyclePause:       time.Minute,
		MaxContribPages:  10,
		ExpandDevelopers: 5,
	}
}

// Notability thresholds for orbit expansion.
const (
	notableMinFollowers = 100
	notableMinRepos     = 5
)

// CycleStats summarizes one cycle.
type CycleStats struct {
	Repos         int
	Contributors  int
	NewProfiles   int
	Contributions int
	NewRepos      int
	Errors        int
}

// Engine is the perpetual crawler.
type Engine struct {
	api     API
	backend Backend
	opts    Options
	logger  *slog.Logger

	// seen memoizes profile IDs per process so one cycle does not refetch
	// the same user for every repository it appears in.
	seen *gocache.Cache
}

// New creates a discovery engine.
func New(api API, backend Backend, opts Options) *Engine {
	return &Engine{
		api:     api,
		backend: backend,
		opts:    opts,
		logger:  slog.Default().With("component", "discovery"),
		seen:    gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// Run cycles until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for {
		stats, err := e.Cycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if apperrors.IsFatal(err) {
				return err
			}
			e.logger.Error("cycle failed", "error", err)
		} else {
			e.logger.Info("cycle complete",
				"repos", stats.Repos,
				"contributors", stats.Contributors,
				"new_profiles", stats.NewProfiles,
				"new_repos", stats.NewRepos,
				"errors", stats.Errors,
				"budget_remaining", e.api.Remaining())
		}

		if err := sleepCtx(ctx, e.opts.CyclePause); err != nil {
			return err
		}
	}
}

// Cycle performs one bounded sweep. A failure inside one repository is
// recorded and the cycle moves on; contributions already written stay.
func (e *Engine) Cycle(ctx context.Context) (*CycleStats, error) {
	repos, err := e.backend.ReposDueForSync(ctx, e.opts.SyncWindow, e.opts.ReposPerCycle)
	if err != nil {
		return nil, fmt.Errorf("select repos for cycle: %w", err)
	}

	stats := &CycleStats{}
	var syncedRepoIDs []uuid.UUID
	for i, repo := range repos {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if err := e.syncRepository(ctx, repo, stats); err != nil {
			stats.Errors++
			e.logger.Warn("repository sweep failed", "repo", repo.FullName, "error", err)
		} else {
			stats.Repos++
			syncedRepoIDs = append(syncedRepoIDs, repo.ID)
		}

		if i < len(repos)-1 {
			if err := sleepCtx(ctx, e.opts.RepoPause); err != nil {
				return stats, err
			}
		}
	}

	if err := e.expand(ctx, syncedRepoIDs, stats); err != nil {
		stats.Errors++
		e.logger.Warn("orbit expansion failed", "error", err)
	}
	return stats, nil
}

// syncRepository fetches contributors for one repository and records the
// edges. Bots and organizations are skipped.
func (e *Engine) syncRepository(ctx context.Context, repo models.GithubRepository, stats *CycleStats) error {
	owner, name, ok := splitFullName(repo.FullName)
	if !ok {
		return fmt.Errorf("malformed full name %q", repo.FullName)
	}

	// Refresh metadata first: taxonomy-seeded repositories carry zero
	// stars until a sweep sees the live record.
	meta, err := e.api.FetchRepository(ctx, owner, name)
	if err != nil {
		if apperrors.IsNotFound(err) {
			e.logger.Info("repository gone, marking synced", "repo", repo.FullName)
			return e.backend.MarkRepositorySynced(ctx, repo.ID, 0)
		}
		return err
	}
	if _, err := e.backend.UpsertGithubRepository(ctx, &models.GithubRepository{
		FullName:    repo.FullName,
		Stars:       meta.Stars,
		Forks:       meta.Forks,
		Language:    models.Str(meta.Language),
		Description: models.Str(meta.Description),
	}); err != nil {
		return err
	}

	contributors, err := e.api.FetchContributors(ctx, owner, name, e.opts.MaxContribPages)
	if err != nil {
		if apperrors.IsNotFound(err) {
			e.logger.Info("repository gone, marking synced", "repo", repo.FullName)
			return e.backend.MarkRepositorySynced(ctx, repo.ID, 0)
		}
		return err
	}

	// Contributors inherit the repository's ecosystem labels.
	ecoNames, err := e.backend.EcosystemNamesForRepo(ctx, repo.ID)
	if err != nil {
		return err
	}

	counted := 0
	for _, contrib := range contributors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if contrib.Type != "User" || contrib.Login == "" {
			continue
		}
		counted++
		stats.Contributors++

		profileID, err := e.ensureProfile(ctx, contrib.Login, stats)
		if err != nil {
			if apperrors.IsNotFound(err) {
				e.logger.Debug("contributor account gone, skipping", "username", contrib.Login)
				continue
			}
			return err
		}

		now := time.Now()
		if err := e.backend.UpsertContribution(ctx, &models.GithubContribution{
			ProfileID:            profileID,
			RepositoryID:         repo.ID,
			ContributionCount:    contrib.Contributions,
			LastContributionDate: &now,
		}); err != nil {
			return err
		}
		stats.Contributions++

		if len(ecoNames) > 0 {
			if err := e.backend.MergeEcosystemTags(ctx, profileID, ecoNames); err != nil {
				return err
			}
		}
	}

	return e.backend.MarkRepositorySynced(ctx, repo.ID, counted)
}

// ensureProfile returns the profile ID for a username, fetching the user
// endpoint only for usernames unseen this process.
func (e *Engine) ensureProfile(ctx context.Context, username string, stats *CycleStats) (uuid.UUID, error) {
	key := strings.ToLower(username)
	if cached, ok := e.seen.Get(key); ok {
		return cached.(uuid.UUID), nil
	}

	user, err := e.api.FetchUser(ctx, username)
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now()
	profileID, inserted, err := e.backend.UpsertGithubProfile(ctx, &models.GithubProfile{
		GithubUsername: user.Login,
		Name:           models.Str(user.Name),
		Company:        models.Str(user.Company),
		Bio:            models.Str(user.Bio),
		Location:       models.Str(user.Location),
		Email:          models.Str(user.Email),
		Blog:           models.Str(user.Blog),
		Followers:      user.Followers,
		Following:      user.Following,
		PublicRepos:    user.PublicRepos,
		LastEnriched:   &now,
	})
	if err != nil {
		return uuid.Nil, err
	}

	// A cache miss can still be a known profile from an earlier run.
	if inserted {
		stats.NewProfiles++
	}
	e.seen.SetDefault(key, profileID)
	return profileID, nil
}

// expand seeds future cycles with the owned repositories of the most
// notable contributors seen in this cycle's repositories.
func (e *Engine) expand(ctx context.Context, repoIDs []uuid.UUID, stats *CycleStats) error {
	if e.opts.ExpandDevelopers <= 0 {
		return nil
	}

	picked := make(map[string]bool)
	for _, repoID := range repoIDs {
		if len(picked) >= e.opts.ExpandDevelopers {
			break
		}
		notables, err := e.backend.TopNotableContributors(ctx, repoID,
			notableMinFollowers, notableMinRepos, e.opts.ExpandDevelopers)
		if err != nil {
			return err
		}
		for _, dev := range notables {
			if len(picked) >= e.opts.ExpandDevelopers {
				break
			}
			picked[dev.GithubUsername] = true
		}
	}

	for username := range picked {
		if err := ctx.Err(); err != nil {
			return err
		}
		repos, err := e.api.FetchUserRepos(ctx, username, 1)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return err
		}
		for _, r := range repos {
			if _, err := e.backend.UpsertGithubRepository(ctx, &models.GithubRepository{
				FullName:    r.FullName,
				Stars:       r.Stars,
				Forks:       r.Forks,
				Language:    models.Str(r.Language),
				Description: models.Str(r.Description),
			}); err != nil {
				return err
			}
			stats.NewRepos++
		}
	}
	return nil
}

// SeedOrg primes the frontier from a GitHub organization: its
// repositories enter the sweep queue and its public members get
// profiles up front, so the next cycles walk the org's graph.
func (e *Engine) SeedOrg(ctx context.Context, org string, maxPages int) (*CycleStats, error) {
	stats := &CycleStats{}

	repos, err := e.api.FetchOrgRepos(ctx, org, maxPages)
	if err != nil {
		return stats, fmt.Errorf("fetch org repos: %w", err)
	}
	for _, r := range repos {
		if _, err := e.backend.UpsertGithubRepository(ctx, &models.GithubRepository{
			FullName:    r.FullName,
			Stars:       r.Stars,
			Forks:       r.Forks,
			Language:    models.Str(r.Language),
			Description: models.Str(r.Description),
		}); err != nil {
			return stats, err
		}
		stats.NewRepos++
	}

	members, err := e.api.FetchOrgMembers(ctx, org, maxPages)
	if err != nil {
		return stats, fmt.Errorf("fetch org members: %w", err)
	}
	for _, username := range members {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if _, err := e.ensureProfile(ctx, username, stats); err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return stats, err
		}
	}
	return stats, nil
}

func splitFullName(fullName string) (owner, name string, ok bool) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
