package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradeterm/internal/domain"
)

// txMaxRetries bounds transparent retries of transactions that fail with a
// serialization or deadlock error.
const txMaxRetries = 3

// DB is the querying surface shared by *pgxpool.Pool and pgx.Tx, so the
// repositories can run against the pool or inside a transaction unchanged.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.Store over PostgreSQL
type Store struct {
	pool *pgxpool.Pool
	db   DB
}

// NewStore creates a new Store backed by the given connection pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// Users returns the user repository bound to this store's handle
func (s *Store) Users() domain.UserRepository {
	return NewUserRepository(s.db)
}

// Positions returns the position repository bound to this store's handle
func (s *Store) Positions() domain.PositionRepository {
	return NewPositionRepository(s.db)
}

// WithinTx runs fn against a store whose handle is a single transaction.
// Serialization conflicts are retried transparently; domain errors from fn
// roll the transaction back and are returned as-is. Calls nested inside a
// transaction reuse it.
func (s *Store) WithinTx(ctx context.Context, fn func(domain.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	var err error
	for attempt := 1; attempt <= txMaxRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		log.Printf("[store] transaction conflict, retrying (%d/%d): %v", attempt, txMaxRetries, err)
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

func (s *Store) runTx(ctx context.Context, fn func(domain.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isRetryable reports whether err is a serialization failure or deadlock,
// the two SQLSTATEs Postgres asks clients to retry.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
