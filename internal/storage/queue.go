package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talentgraph/talentgraph-go/internal/models"
)

// Enqueue adds a person to the enrichment queue unless a pending or
// in-progress item for them already exists. Returns whether a row was
// added.
func (s *Store) Enqueue(ctx context.Context, personID uuid.UUID, priority int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO enrichment_queue (person_id, priority)
		SELECT $1, $2
		WHERE NOT EXISTS (
			SELECT 1 FROM enrichment_queue
			WHERE person_id = $1 AND status IN ('pending', 'in_progress')
		)
	`, personID, priority)
	if err != nil {
		return false, fmt.Errorf("enqueue: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// LeaseBatch claims up to limit pending items in one transaction:
// priority DESC then FIFO, each flipped to in_progress with attempts
// incremented and last_attempt stamped. SKIP LOCKED keeps concurrent
// workers from claiming the same rows.
func (s *Store) LeaseBatch(ctx context.Context, limit int) ([]models.EnrichmentQueueItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin lease: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		UPDATE enrichment_queue
		SET status = 'in_progress', attempts = attempts + 1, last_attempt = NOW()
		WHERE queue_id IN (
			SELECT queue_id FROM enrichment_queue
			WHERE status = 'pending'
			ORDER BY priority DESC, created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING queue_id, person_id, priority, status, attempts, last_attempt,
			error_message, created_at, completed_at
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("lease batch: %w", err)
	}

	var items []models.EnrichmentQueueItem
	for rows.Next() {
		var item models.EnrichmentQueueItem
		if err := rows.Scan(&item.QueueID, &item.PersonID, &item.Priority, &item.Status,
			&item.Attempts, &item.LastAttempt, &item.ErrorMessage,
			&item.CreatedAt, &item.CompletedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan leased item: %w", err)
		}
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lease batch rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit lease: %w", err)
	}
	return items, nil
}

// CompleteItem marks a leased item done.
func (s *Store) CompleteItem(ctx context.Context, queueID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE enrichment_queue
		SET status = 'completed', completed_at = NOW(), error_message = NULL
		WHERE queue_id = $1
	`, queueID)
	if err != nil {
		return fmt.Errorf("complete queue item: %w", err)
	}
	return nil
}

const maxErrorMessageLen = 500

// FailItem marks a leased item failed with a truncated error message.
// Failed items are not retried automatically.
func (s *Store) FailItem(ctx context.Context, queueID int64, cause error) error {
	msg := cause.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE enrichment_queue
		SET status = 'failed', error_message = $2
		WHERE queue_id = $1
	`, queueID, msg)
	if err != nil {
		return fmt.Errorf("fail queue item: %w", err)
	}
	return nil
}

// ReapStaleLeases returns in_progress items older than the TTL to
// pending. Covers workers that died mid-lease.
func (s *Store) ReapStaleLeases(ctx context.Context, ttl time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE enrichment_queue
		SET status = 'pending'
		WHERE status = 'in_progress' AND last_attempt < NOW() - $1::interval
	`, fmt.Sprintf("%d seconds", int(ttl.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("reap stale leases: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// EnqueueNeedyPeople queues people flagged needs_enrichment that have a
// LinkedIn URL and no live queue item. Returns rows added.
func (s *Store) EnqueueNeedyPeople(ctx context.Context, limit int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO enrichment_queue (person_id, priority)
		SELECT p.id, 0 FROM people p
		WHERE p.needs_enrichment
			AND p.linkedin_url IS NOT NULL
			AND NOT EXISTS (
				SELECT 1 FROM enrichment_queue q
				WHERE q.person_id = p.id AND q.status IN ('pending', 'in_progress')
			)
		ORDER BY p.created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("enqueue needy people: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// QueueCounts reports item counts per status.
func (s *Store) QueueCounts(ctx context.Context) (map[models.QueueStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM enrichment_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.QueueStatus]int)
	for rows.Next() {
		var status models.QueueStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan queue count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
