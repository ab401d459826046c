// Package storage persists the talent graph to PostgreSQL. Bulk write
// paths go through sqlx named statements with ON CONFLICT upserts;
// transactional paths (merge, queue lease) run on a pgx pool so each unit
// of work gets a fresh connection.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Store wraps the PostgreSQL connections.
type Store struct {
	db     *sqlx.DB
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to PostgreSQL and verifies connectivity. Fails fast on
// startup so missing schema or credentials abort the job.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn missing")
	}

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger := slog.Default().With("component", "storage")
	logger.Info("postgres connected")

	return &Store{db: db, pool: pool, logger: logger}, nil
}

// Close closes both connection pools.
func (s *Store) Close() error {
	s.pool.Close()
	return s.db.Close()
}

// HealthCheck verifies connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres health check: %w", err)
	}
	return nil
}

// DB exposes the sqlx handle for read-model queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Pool exposes the pgx pool for transactional units of work.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
