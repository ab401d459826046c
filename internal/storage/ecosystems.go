package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/talentgraph/talentgraph-go/internal/models"
)

const ecosystemInsertChunk = 1000

// InsertEcosystems batch-inserts taxonomy rows in chunks, skipping names
// that already exist. Returns the number of rows actually inserted.
func (s *Store) InsertEcosystems(ctx context.Context, ecosystems []models.CryptoEcosystem) (int, error) {
	inserted := 0
	for start := 0; start < len(ecosystems); start += ecosystemInsertChunk {
		end := start + ecosystemInsertChunk
		if end > len(ecosystems) {
			end = len(ecosystems)
		}
		chunk := ecosystems[start:end]

		res, err := s.db.NamedExecContext(ctx, `
			INSERT INTO crypto_ecosystems (ecosystem_name, normalized_name, ecosystem_type, priority_tier)
			VALUES (:ecosystem_name, :normalized_name, :ecosystem_type, :priority_tier)
			ON CONFLICT (ecosystem_name) DO NOTHING
		`, chunk)
		if err != nil {
			return inserted, fmt.Errorf("insert ecosystems chunk at %d: %w", start, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// GetEcosystemByName looks up an ecosystem by exact name.
func (s *Store) GetEcosystemByName(ctx context.Context, name string) (*models.CryptoEcosystem, error) {
	var e models.CryptoEcosystem
	err := s.db.GetContext(ctx, &e,
		`SELECT * FROM crypto_ecosystems WHERE ecosystem_name = $1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ecosystem: %w", err)
	}
	return &e, nil
}

// ListEcosystems returns the full taxonomy ordered by priority.
func (s *Store) ListEcosystems(ctx context.Context) ([]models.CryptoEcosystem, error) {
	var rows []models.CryptoEcosystem
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM crypto_ecosystems ORDER BY priority_tier ASC, ecosystem_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list ecosystems: %w", err)
	}
	return rows, nil
}

// repoSeed is the minimal row shape for batch repository seeding.
type repoSeed struct {
	ID       uuid.UUID `db:"id"`
	FullName string    `db:"full_name"`
}

// InsertRepositoryNames batch-inserts bare repositories in chunks,
// skipping full names that already exist. Metadata arrives later, when a
// discovery sweep sees the live record. Returns the number inserted.
func (s *Store) InsertRepositoryNames(ctx context.Context, fullNames []string) (int, error) {
	inserted := 0
	for start := 0; start < len(fullNames); start += ecosystemInsertChunk {
		end := start + ecosystemInsertChunk
		if end > len(fullNames) {
			end = len(fullNames)
		}
		chunk := make([]repoSeed, 0, end-start)
		for _, name := range fullNames[start:end] {
			chunk = append(chunk, repoSeed{ID: uuid.New(), FullName: name})
		}

		res, err := s.db.NamedExecContext(ctx, `
			INSERT INTO github_repositories (id, full_name)
			VALUES (:id, :full_name)
			ON CONFLICT (full_name) DO NOTHING
		`, chunk)
		if err != nil {
			return inserted, fmt.Errorf("insert repositories chunk at %d: %w", start, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

// RepositoryIDsByFullName maps full names to repository IDs in one query.
func (s *Store) RepositoryIDsByFullName(ctx context.Context, fullNames []string) (map[string]uuid.UUID, error) {
	var rows []repoSeed
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, full_name FROM github_repositories WHERE full_name = ANY($1)
	`, pq.Array(fullNames))
	if err != nil {
		return nil, fmt.Errorf("repository ids by full name: %w", err)
	}
	out := make(map[string]uuid.UUID, len(rows))
	for _, r := range rows {
		out[r.FullName] = r.ID
	}
	return out, nil
}

// EcosystemRepoLink is one (ecosystem, repository) join row with its tags.
type EcosystemRepoLink struct {
	EcosystemID  int64          `db:"ecosystem_id"`
	RepositoryID uuid.UUID      `db:"repository_id"`
	Tags         pq.StringArray `db:"tags"`
}

// LinkEcosystemRepositories batch-inserts join rows in chunks, then
// recomputes the denormalized ecosystem_ids array for the touched
// repositories. Returns the number of join rows actually inserted.
func (s *Store) LinkEcosystemRepositories(ctx context.Context, links []EcosystemRepoLink) (int, error) {
	linked := 0
	for start := 0; start < len(links); start += ecosystemInsertChunk {
		end := start + ecosystemInsertChunk
		if end > len(links) {
			end = len(links)
		}
		chunk := links[start:end]

		res, err := s.db.NamedExecContext(ctx, `
			INSERT INTO ecosystem_repositories (ecosystem_id, repository_id, tags)
			VALUES (:ecosystem_id, :repository_id, :tags)
			ON CONFLICT (ecosystem_id, repository_id) DO NOTHING
		`, chunk)
		if err != nil {
			return linked, fmt.Errorf("link repositories chunk at %d: %w", start, err)
		}
		n, _ := res.RowsAffected()
		linked += int(n)

		repoIDs := make([]uuid.UUID, 0, len(chunk))
		for _, l := range chunk {
			repoIDs = append(repoIDs, l.RepositoryID)
		}
		_, err = s.db.ExecContext(ctx, `
			UPDATE github_repositories r
			SET ecosystem_ids = (
				SELECT COALESCE(ARRAY_AGG(DISTINCT er.ecosystem_id ORDER BY er.ecosystem_id), '{}')
				FROM ecosystem_repositories er
				WHERE er.repository_id = r.id
			)
			WHERE r.id = ANY($1)
		`, pq.Array(repoIDs))
		if err != nil {
			return linked, fmt.Errorf("fold ecosystem ids at %d: %w", start, err)
		}
	}
	return linked, nil
}

// EcosystemNamesForRepo returns the ecosystem names tagged on a repository.
func (s *Store) EcosystemNamesForRepo(ctx context.Context, repoID uuid.UUID) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `
		SELECT e.ecosystem_name
		FROM crypto_ecosystems e
		JOIN ecosystem_repositories er ON er.ecosystem_id = e.id
		WHERE er.repository_id = $1
		ORDER BY e.priority_tier ASC
	`, repoID)
	if err != nil {
		return nil, fmt.Errorf("ecosystem names for repo: %w", err)
	}
	return names, nil
}

// LinkCompanyEcosystem joins a company to an ecosystem with an attribution
// note and confidence. Conflict-do-nothing keeps re-runs idempotent.
func (s *Store) LinkCompanyEcosystem(ctx context.Context, link *models.CompanyEcosystem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO company_ecosystems (company_id, ecosystem_id, attribution, confidence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (company_id, ecosystem_id) DO NOTHING
	`, link.CompanyID, link.EcosystemID, link.Attribution, link.Confidence)
	if err != nil {
		return fmt.Errorf("link company ecosystem: %w", err)
	}
	return nil
}

// EcosystemCount reports taxonomy size; used by the ecosystems CLI summary.
func (s *Store) EcosystemCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM crypto_ecosystems`); err != nil {
		return 0, fmt.Errorf("ecosystem count: %w", err)
	}
	return n, nil
}
