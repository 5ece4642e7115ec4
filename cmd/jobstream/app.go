// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/jobstream/internal/redisx"
	"github.com/pdiddy/jobstream/internal/search"
	"github.com/pdiddy/jobstream/pkg/types"
)

// app holds what every command that searches needs.
type app struct {
	agg   *search.Aggregator
	redis *redis.Client
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

// newApp builds the enabled platforms and, when Redis is configured, puts
// the result cache in front of them and the quota in front of every run.
func newApp(ctx context.Context, c types.Config, opts ...search.Option) (*app, error) {
	client := &http.Client{Timeout: c.Stream.Timeout}
	platforms := search.NewPlatforms(c.Platforms, client)
	if len(platforms) == 0 {
		return nil, fmt.Errorf("no platforms enabled")
	}

	a := &app{}
	opts = append([]search.Option{search.WithLogger(logger)}, opts...)
	if c.Redis.URL != "" {
		rdb, err := redisx.NewClient(ctx, c.Redis.URL)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		if c.Redis.CacheTTL > 0 {
			platforms = redisx.NewResultCache(rdb, c.Redis.CacheTTL, logger).WrapAll(platforms)
		}
		if c.Redis.QuotaPerHour > 0 {
			opts = append(opts, search.WithAdmission(redisx.NewQuotaLimiter(rdb, c.Redis.QuotaPerHour, logger).Admit))
		}
		logger.Info("redis enabled", "cache_ttl", c.Redis.CacheTTL, "quota_per_hour", c.Redis.QuotaPerHour)
	}

	a.agg = search.NewAggregator(platforms, c.Stream, opts...)
	logger.Debug("platforms enabled", "platforms", a.agg.PlatformNames())
	return a, nil
}
