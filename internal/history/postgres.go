// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdiddy/jobstream/internal/search"
)

// PostgresStore keeps search history in Postgres.
type PostgresStore struct {
	pool      *pgxpool.Pool
	retention time.Duration
}

// NewPostgresStore connects to databaseURL, verifies the connection, and
// creates the schema if needed.
func NewPostgresStore(ctx context.Context, databaseURL string, retention time.Duration) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	s := &PostgresStore{pool: pool, retention: retention}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS search_history (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			query JSONB NOT NULL,
			result_count INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user_created ON search_history(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_history_created ON search_history(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordSearch appends one record.
func (s *PostgresStore) RecordSearch(ctx context.Context, userID string, q search.Query, resultCount int) error {
	data, err := json.Marshal(search.ParamsOf(q))
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO search_history (user_id, query, result_count) VALUES ($1, $2, $3)`,
		userID, data, resultCount)
	if err != nil {
		return fmt.Errorf("recording search: %w", err)
	}
	return nil
}

// ListHistory returns userID's most recent records.
func (s *PostgresStore) ListHistory(ctx context.Context, userID string, limit int) ([]Record, error) {
	if userID == "" {
		return []Record{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, query, result_count, created_at FROM search_history
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		var query []byte
		if err := row.Scan(&r.ID, &r.UserID, &query, &r.ResultCount, &r.CreatedAt); err != nil {
			return r, err
		}
		if err := json.Unmarshal(query, &r.Query); err != nil {
			return r, fmt.Errorf("decoding query of record %d: %w", r.ID, err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning history rows: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// CleanupExpired deletes records older than the retention period.
func (s *PostgresStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM search_history WHERE created_at < now() - make_interval(secs => $1)`,
		s.retention.Seconds())
	if err != nil {
		return 0, fmt.Errorf("deleting expired history: %w", err)
	}
	return tag.RowsAffected(), nil
}
