// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records completed searches per user and expires old
// records. SQLite is the default backend; Postgres is available for shared
// deployments.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/jobstream/internal/search"
	"github.com/pdiddy/jobstream/pkg/types"
)

const (
	// DefaultRetention is how long records are kept when unconfigured.
	DefaultRetention = 720 * time.Hour

	// DefaultCleanupSchedule is the cron spec for expiring records.
	DefaultCleanupSchedule = "@every 1h"

	defaultListLimit = 50
	defaultSQLiteDSN = "jobstream.db"
)

// ErrUnknownDriver is returned by Open for an unsupported history driver.
var ErrUnknownDriver = errors.New("unknown history driver")

// Record is one completed search.
type Record struct {
	ID          int64              `json:"id" yaml:"id"`
	UserID      string             `json:"userId" yaml:"user_id"`
	Query       search.QueryParams `json:"query" yaml:"query"`
	ResultCount int                `json:"resultCount" yaml:"result_count"`
	CreatedAt   time.Time          `json:"createdAt" yaml:"created_at"`
}

// Store persists search history. Records are appended once per completed
// run and never updated.
type Store interface {
	// RecordSearch appends a record for userID. An empty userID records an
	// anonymous search.
	RecordSearch(ctx context.Context, userID string, q search.Query, resultCount int) error

	// ListHistory returns up to limit records for userID, newest first.
	// Anonymous callers always get an empty list.
	ListHistory(ctx context.Context, userID string, limit int) ([]Record, error)

	// CleanupExpired deletes records older than the retention period and
	// returns how many were removed.
	CleanupExpired(ctx context.Context) (int64, error)

	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg types.HistoryConfig) (Store, error) {
	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	switch cfg.Driver {
	case "", "sqlite", "sqlite3":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
		return NewSQLiteStore(dsn, retention)
	case "postgres", "postgresql", "pgx":
		return NewPostgresStore(ctx, cfg.DSN, retention)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}
