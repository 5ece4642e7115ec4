// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/jobstream/internal/search"
)

// SQLiteStore keeps search history in a local SQLite file.
type SQLiteStore struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
}

// NewSQLiteStore opens or creates the database at path and its schema.
func NewSQLiteStore(path string, retention time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, retention: retention, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS search_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			query TEXT NOT NULL,
			result_count INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user_created ON search_history(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_history_created ON search_history(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordSearch appends one record.
func (s *SQLiteStore) RecordSearch(ctx context.Context, userID string, q search.Query, resultCount int) error {
	data, err := json.Marshal(search.ParamsOf(q))
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_history (user_id, query, result_count, created_at) VALUES (?, ?, ?, ?)`,
		userID, string(data), resultCount, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("recording search: %w", err)
	}
	return nil
}

// ListHistory returns userID's most recent records.
func (s *SQLiteStore) ListHistory(ctx context.Context, userID string, limit int) ([]Record, error) {
	if userID == "" {
		return []Record{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, query, result_count, created_at FROM search_history
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		var query string
		var created int64
		if err := rows.Scan(&r.ID, &r.UserID, &query, &r.ResultCount, &created); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if err := json.Unmarshal([]byte(query), &r.Query); err != nil {
			return nil, fmt.Errorf("decoding query of record %d: %w", r.ID, err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

// CleanupExpired deletes records older than the retention period.
func (s *SQLiteStore) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired history: %w", err)
	}
	return res.RowsAffected()
}
