package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RepoScoreRow carries the graph signals the repository importance
// formula consumes.
type RepoScoreRow struct {
	ID               uuid.UUID `db:"id"`
	Stars            int       `db:"stars"`
	Forks            int       `db:"forks"`
	ContributorCount int       `db:"contributor_count"`
	EcosystemCount   int       `db:"ecosystem_count"`
}

// ReposNeedingScores returns a batch of repositories with a null-or-zero
// importance score, paginated by ID keyset. The cursor is what guarantees
// termination: a zero-signal repository legitimately recomputes to 0 and
// stays in the filter, but the sweep never revisits an ID it has passed.
// With force set the filter is dropped and every repository is walked.
func (s *Store) ReposNeedingScores(ctx context.Context, limit int, after uuid.UUID, force bool) ([]RepoScoreRow, error) {
	filter := "AND COALESCE(importance_score, 0) = 0"
	if force {
		filter = ""
	}
	var rows []RepoScoreRow
	err := s.db.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT id, stars, forks, contributor_count,
			COALESCE(array_length(ecosystem_ids, 1), 0) AS ecosystem_count
		FROM github_repositories
		WHERE id > $2 %s
		ORDER BY id ASC
		LIMIT $1
	`, filter), limit, after)
	if err != nil {
		return nil, fmt.Errorf("repos needing scores: %w", err)
	}
	return rows, nil
}

// DeveloperScoreRow carries the signals the developer importance formula
// consumes. WeightedRepoSum is the sum of contributed repositories'
// importance scores, each weighted by the profile's contribution share.
type DeveloperScoreRow struct {
	ID              uuid.UUID `db:"id"`
	Followers       int       `db:"followers"`
	PublicRepos     int       `db:"public_repos"`
	WeightedRepoSum float64   `db:"weighted_repo_sum"`
}

// ProfilesNeedingScores returns a batch of profiles with a null-or-zero
// importance score, with the contribution-weighted repo sum aggregated
// in the same round trip. Run after the repository sweep so the repo
// scores being summed are current. Same ID-keyset pagination as the
// repository query.
func (s *Store) ProfilesNeedingScores(ctx context.Context, limit int, after uuid.UUID, force bool) ([]DeveloperScoreRow, error) {
	filter := "AND COALESCE(p.importance_score, 0) = 0"
	if force {
		filter = ""
	}
	var rows []DeveloperScoreRow
	err := s.db.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT p.id, p.followers, p.public_repos,
			COALESCE((
				SELECT SUM(r.importance_score * LEAST(1.0, c.contribution_count / 50.0))
				FROM github_contributions c
				JOIN github_repositories r ON r.id = c.repository_id
				WHERE c.profile_id = p.id
			), 0) AS weighted_repo_sum
		FROM github_profiles p
		WHERE p.id > $2 %s
		ORDER BY p.id ASC
		LIMIT $1
	`, filter), limit, after)
	if err != nil {
		return nil, fmt.Errorf("profiles needing scores: %w", err)
	}
	return rows, nil
}

// ScoreUpdate is one (entity, score) pair for a batch commit.
type ScoreUpdate struct {
	ID    uuid.UUID
	Score float64
}

// UpdateRepositoryScores writes a batch of repository scores in one
// transaction.
func (s *Store) UpdateRepositoryScores(ctx context.Context, updates []ScoreUpdate) error {
	return s.updateScores(ctx, "github_repositories", updates)
}

// UpdateProfileScores writes a batch of profile scores in one
// transaction.
func (s *Store) UpdateProfileScores(ctx context.Context, updates []ScoreUpdate) error {
	return s.updateScores(ctx, "github_profiles", updates)
}

func (s *Store) updateScores(ctx context.Context, table string, updates []ScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin score update: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf("UPDATE %s SET importance_score = $2 WHERE id = $1", table)
	for _, u := range updates {
		if _, err := tx.Exec(ctx, query, u.ID, u.Score); err != nil {
			return fmt.Errorf("update %s score: %w", table, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit score update: %w", err)
	}
	return nil
}

// ScoreBacklog counts repositories and profiles still carrying a
// null-or-zero importance score.
func (s *Store) ScoreBacklog(ctx context.Context) (repos, profiles int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM github_repositories WHERE COALESCE(importance_score, 0) = 0),
			(SELECT COUNT(*) FROM github_profiles WHERE COALESCE(importance_score, 0) = 0)
	`).Scan(&repos, &profiles)
	if err != nil {
		return 0, 0, fmt.Errorf("score backlog: %w", err)
	}
	return repos, profiles, nil
}
