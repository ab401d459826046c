package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talentgraph/talentgraph-go/internal/storage"
)

// Backend is the storage surface the sweeps need. *storage.Store
// satisfies it.
type Backend interface {
	ReposNeedingScores(ctx context.Context, limit int, after uuid.UUID, force bool) ([]storage.RepoScoreRow, error)
	ProfilesNeedingScores(ctx context.Context, limit int, after uuid.UUID, force bool) ([]storage.DeveloperScoreRow, error)
	UpdateRepositoryScores(ctx context.Context, updates []storage.ScoreUpdate) error
	UpdateProfileScores(ctx context.Context, updates []storage.ScoreUpdate) error
	ScoreBacklog(ctx context.Context) (repos, profiles int, err error)
}

// Sweeper recomputes importance scores in committed batches, walking the
// table by ID keyset. The cursor only moves forward, so rows whose score
// legitimately recomputes to zero cannot be re-read, and an interrupted
// sweep resumes from the start with already-scored rows filtered out.
type Sweeper struct {
	backend Backend
	logger  *slog.Logger

	// BatchSize is how many rows each commit covers.
	BatchSize int
	// Force rescores every row instead of only null-or-zero scores.
	Force bool
}

// NewSweeper creates a sweeper with the production batch size.
func NewSweeper(backend Backend) *Sweeper {
	return &Sweeper{
		backend:   backend,
		logger:    slog.Default().With("component", "scoring"),
		BatchSize: 1000,
	}
}

// Run recomputes repository scores first, then developer scores, so the
// weighted repo sums feeding the developer formula are current.
func (s *Sweeper) Run(ctx context.Context) error {
	if err := s.SweepRepositories(ctx); err != nil {
		return err
	}
	return s.SweepDevelopers(ctx)
}

// SweepRepositories scores repositories batch by batch until none match.
func (s *Sweeper) SweepRepositories(ctx context.Context) error {
	backlog, _, err := s.backend.ScoreBacklog(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	done := 0

	var after uuid.UUID
	for {
		rows, err := s.backend.ReposNeedingScores(ctx, s.BatchSize, after, s.Force)
		if err != nil {
			return fmt.Errorf("load repo batch: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		after = rows[len(rows)-1].ID

		updates := make([]storage.ScoreUpdate, 0, len(rows))
		for _, r := range rows {
			updates = append(updates, storage.ScoreUpdate{
				ID:    r.ID,
				Score: RepositoryImportance(r.Stars, r.Forks, r.ContributorCount, r.EcosystemCount),
			})
		}
		if err := s.backend.UpdateRepositoryScores(ctx, updates); err != nil {
			return fmt.Errorf("commit repo scores: %w", err)
		}

		done += len(rows)
		s.logProgress("repositories", done, backlog, start)
		if len(rows) < s.BatchSize {
			break
		}
	}

	s.logger.Info("repository sweep finished", "scored", done,
		"elapsed", time.Since(start).Round(time.Second).String())
	return nil
}

// SweepDevelopers scores profiles batch by batch until none match.
func (s *Sweeper) SweepDevelopers(ctx context.Context) error {
	_, backlog, err := s.backend.ScoreBacklog(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	done := 0

	var after uuid.UUID
	for {
		rows, err := s.backend.ProfilesNeedingScores(ctx, s.BatchSize, after, s.Force)
		if err != nil {
			return fmt.Errorf("load profile batch: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		after = rows[len(rows)-1].ID

		updates := make([]storage.ScoreUpdate, 0, len(rows))
		for _, r := range rows {
			updates = append(updates, storage.ScoreUpdate{
				ID:    r.ID,
				Score: DeveloperImportance(r.Followers, r.PublicRepos, r.WeightedRepoSum),
			})
		}
		if err := s.backend.UpdateProfileScores(ctx, updates); err != nil {
			return fmt.Errorf("commit profile scores: %w", err)
		}

		done += len(rows)
		s.logProgress("developers", done, backlog, start)
		if len(rows) < s.BatchSize {
			break
		}
	}

	s.logger.Info("developer sweep finished", "scored", done,
		"elapsed", time.Since(start).Round(time.Second).String())
	return nil
}

// logProgress reports scored counts with an ETA extrapolated from the
// pace so far. Forced sweeps skip the ETA: the backlog count only
// covers unscored rows.
func (s *Sweeper) logProgress(kind string, done, backlog int, start time.Time) {
	fields := []any{"kind", kind, "scored", done}
	if !s.Force && backlog > done && done > 0 {
		perRow := time.Since(start) / time.Duration(done)
		eta := perRow * time.Duration(backlog-done)
		fields = append(fields, "remaining", backlog-done,
			"eta", eta.Round(time.Second).String())
	}
	s.logger.Info("scoring progress", fields...)
}
