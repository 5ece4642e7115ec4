// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package redisx

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pdiddy/jobstream/internal/auth"
	"github.com/pdiddy/jobstream/internal/search"
)

const (
	quotaKeyPrefix = "jobstream:quota:"
	quotaWindow    = time.Hour
	anonymousUser  = "anonymous"
)

// QuotaLimiter caps the runs each user may start per clock hour. Anonymous
// callers share one bucket.
type QuotaLimiter struct {
	store  Store
	limit  int
	logger *slog.Logger
	now    func() time.Time
}

// NewQuotaLimiter returns a limiter admitting perHour runs per user.
func NewQuotaLimiter(store Store, perHour int, logger *slog.Logger) *QuotaLimiter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &QuotaLimiter{store: store, limit: perHour, logger: logger, now: time.Now}
}

// Admit counts one run against the caller's window and refuses it once the
// limit is passed. Redis failures admit the run.
func (l *QuotaLimiter) Admit(ctx context.Context, _ search.Query) error {
	user, ok := auth.CurrentUser(ctx)
	if !ok {
		user = anonymousUser
	}
	window := l.now().Truncate(quotaWindow).Unix()
	key := quotaKeyPrefix + user + ":" + strconv.FormatInt(window, 10)

	n, err := l.store.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("quota check failed, admitting run", "user", user, "err", err)
		return nil
	}
	if n == 1 {
		if err := l.store.Expire(ctx, key, quotaWindow).Err(); err != nil {
			l.logger.Warn("setting quota expiry", "key", key, "err", err)
		}
	}
	if n > int64(l.limit) {
		return &search.RunError{
			Message: "run refused",
			Err:     fmt.Errorf("%w: %d searches per hour", search.ErrQuotaExceeded, l.limit),
		}
	}
	return nil
}
