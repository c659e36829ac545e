package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a referenced record does not exist. Callers
// use errors.Is to distinguish absence from store failure.
var ErrNotFound = errors.New("record not found")

// Store wraps pgxpool for Postgres persistence of all record kinds.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// AppendActivity adds a row to the submission/executor activity trail.
func (s *Store) AppendActivity(ctx context.Context, recordID, event, detail string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO activity_log (record_id, event, detail, ts)
		VALUES ($1, $2, $3, NOW())
	`, recordID, event, detail)
	return err
}

func textPtr(t pgtype.Text) *string {
	if t.Valid {
		return &t.String
	}
	return nil
}
