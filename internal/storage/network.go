package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talentgraph/talentgraph-go/internal/models"
)

// Neighbor is one hop away from a person, with the relationship that
// connects them.
type Neighbor struct {
	PersonID uuid.UUID `db:"person_id"`
	EdgeType string    `db:"edge_type"` // "coworker" or "collaborator"
	Via      string    `db:"via"`       // company name or repository full name
}

// CoworkerNeighbors returns people who share an employment company with
// the given person, capped. Overlap is by company, not by date range.
func (s *Store) CoworkerNeighbors(ctx context.Context, personID uuid.UUID, limit int) ([]Neighbor, error) {
	var rows []Neighbor
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT e2.person_id, 'coworker' AS edge_type, c.company_name AS via
		FROM employment e1
		JOIN employment e2 ON e2.company_id = e1.company_id AND e2.person_id <> e1.person_id
		JOIN companies c ON c.id = e1.company_id
		WHERE e1.person_id = $1
		LIMIT $2
	`, personID, limit)
	if err != nil {
		return nil, fmt.Errorf("coworker neighbors: %w", err)
	}
	return rows, nil
}

// CollaboratorNeighbors returns people whose GitHub profiles contributed
// to a repository this person's profiles contributed to, capped. Orphan
// profiles (no owning person) are excluded.
func (s *Store) CollaboratorNeighbors(ctx context.Context, personID uuid.UUID, limit int) ([]Neighbor, error) {
	var rows []Neighbor
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT p2.person_id, 'collaborator' AS edge_type, r.full_name AS via
		FROM github_profiles p1
		JOIN github_contributions c1 ON c1.profile_id = p1.id
		JOIN github_contributions c2 ON c2.repository_id = c1.repository_id AND c2.profile_id <> c1.profile_id
		JOIN github_profiles p2 ON p2.id = c2.profile_id AND p2.person_id IS NOT NULL
		JOIN github_repositories r ON r.id = c1.repository_id
		WHERE p1.person_id = $1
		LIMIT $2
	`, personID, limit)
	if err != nil {
		return nil, fmt.Errorf("collaborator neighbors: %w", err)
	}
	return rows, nil
}

// GetCachedPath returns a cached BFS result no older than maxAge, or
// ErrNotFound when missing or stale.
func (s *Store) GetCachedPath(ctx context.Context, source, target uuid.UUID, maxAge time.Duration) (*models.NetworkPath, error) {
	var p models.NetworkPath
	err := s.db.GetContext(ctx, &p, `
		SELECT * FROM network_paths
		WHERE source_person_id = $1 AND target_person_id = $2
			AND cached_at > NOW() - $3::interval
	`, source, target, fmt.Sprintf("%d seconds", int(maxAge.Seconds())))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get cached path: %w", err)
	}
	return &p, nil
}

// PutCachedPath stores a found path, replacing any prior entry for the
// pair. Callers never cache a negative result.
func (s *Store) PutCachedPath(ctx context.Context, p *models.NetworkPath) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO network_paths (source_person_id, target_person_id, path_length, path_data, cached_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (source_person_id, target_person_id) DO UPDATE SET
			path_length = EXCLUDED.path_length,
			path_data = EXCLUDED.path_data,
			cached_at = NOW()
	`, p.SourcePersonID, p.TargetPersonID, p.PathLength, p.PathData)
	if err != nil {
		return fmt.Errorf("put cached path: %w", err)
	}
	return nil
}

// HiringMovement is one observed company-to-company transition.
type HiringMovement struct {
	FromCompany string    `db:"from_company"`
	ToCompany   string    `db:"to_company"`
	PersonID    uuid.UUID `db:"person_id"`
	MovedAt     time.Time `db:"moved_at"`
}

// HiringMovements lists transitions into a company since a cutoff: an
// employment row starting there after an earlier row elsewhere ended.
func (s *Store) HiringMovements(ctx context.Context, companyID uuid.UUID, since time.Time) ([]HiringMovement, error) {
	var rows []HiringMovement
	err := s.db.SelectContext(ctx, &rows, `
		SELECT cf.company_name AS from_company, ct.company_name AS to_company,
			new_job.person_id, new_job.start_date AS moved_at
		FROM employment new_job
		JOIN companies ct ON ct.id = new_job.company_id
		JOIN employment old_job ON old_job.person_id = new_job.person_id
			AND old_job.company_id <> new_job.company_id
			AND old_job.end_date IS NOT NULL
			AND old_job.end_date <= new_job.start_date
		JOIN companies cf ON cf.id = old_job.company_id
		WHERE new_job.company_id = $1 AND new_job.start_date >= $2
		ORDER BY new_job.start_date DESC
	`, companyID, since)
	if err != nil {
		return nil, fmt.Errorf("hiring movements: %w", err)
	}
	return rows, nil
}

// Stats is a snapshot of graph size for the status command.
type Stats struct {
	People        int `db:"people"`
	Companies     int `db:"companies"`
	Employment    int `db:"employment"`
	Profiles      int `db:"profiles"`
	Repositories  int `db:"repositories"`
	Contributions int `db:"contributions"`
	Ecosystems    int `db:"ecosystems"`
	QueuePending  int `db:"queue_pending"`
}

// GraphStats counts the major tables in one round trip.
func (s *Store) GraphStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			(SELECT COUNT(*) FROM people) AS people,
			(SELECT COUNT(*) FROM companies) AS companies,
			(SELECT COUNT(*) FROM employment) AS employment,
			(SELECT COUNT(*) FROM github_profiles) AS profiles,
			(SELECT COUNT(*) FROM github_repositories) AS repositories,
			(SELECT COUNT(*) FROM github_contributions) AS contributions,
			(SELECT COUNT(*) FROM crypto_ecosystems) AS ecosystems,
			(SELECT COUNT(*) FROM enrichment_queue WHERE status = 'pending') AS queue_pending
	`)
	if err != nil {
		return nil, fmt.Errorf("graph stats: %w", err)
	}
	return &st, nil
}
