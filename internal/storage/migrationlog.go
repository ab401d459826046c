package storage

import (
	"context"
	"fmt"
)

// StartMigrationLog opens an append-only log row for an import run and
// returns its ID.
func (s *Store) StartMigrationLog(ctx context.Context, jobName, source string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO migration_log (job_name, source) VALUES ($1, $2) RETURNING id
	`, jobName, source)
	if err != nil {
		return 0, fmt.Errorf("start migration log: %w", err)
	}
	return id, nil
}

// FinishMigrationLog stamps the run's counters and completion time.
func (s *Store) FinishMigrationLog(ctx context.Context, id int64, rowsTotal, created, enriched, skipped, errCount int, metadata []byte) error {
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE migration_log
		SET completed_at = NOW(), rows_total = $2, created = $3, enriched = $4,
			skipped = $5, errors = $6, metadata = $7
		WHERE id = $1
	`, id, rowsTotal, created, enriched, skipped, errCount, metadata)
	if err != nil {
		return fmt.Errorf("finish migration log: %w", err)
	}
	return nil
}
