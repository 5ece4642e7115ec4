// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package redisx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/jobstream/internal/search"
	"github.com/pdiddy/jobstream/pkg/types"
)

const cacheKeyPrefix = "jobstream:cache:"

// ResultCache memoizes each platform's postings per query for a fixed TTL.
// Cache failures never fail a search: the platform is queried live and the
// failure is logged.
type ResultCache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewResultCache returns a cache writing entries that expire after ttl.
func NewResultCache(store Store, ttl time.Duration, logger *slog.Logger) *ResultCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ResultCache{store: store, ttl: ttl, logger: logger}
}

// Wrap returns p with caching in front of it. Pagers stay pagers so live
// searches still stream page by page.
func (c *ResultCache) Wrap(p search.Platform) search.Platform {
	cp := &cachedPlatform{cache: c, inner: p}
	if pager, ok := p.(search.Pager); ok {
		return &cachedPager{cachedPlatform: cp, pager: pager}
	}
	return cp
}

// WrapAll wraps every platform in ps.
func (c *ResultCache) WrapAll(ps []search.Platform) []search.Platform {
	out := make([]search.Platform, len(ps))
	for i, p := range ps {
		out[i] = c.Wrap(p)
	}
	return out
}

// key scopes an entry to the platform, the platform-facing query terms and
// the result cap.
func (c *ResultCache) key(platform string, q search.Query, cfg types.StreamConfig) string {
	sum := sha256.Sum256([]byte(q.CacheKey() + "|" + strconv.Itoa(cfg.MaxResultsPerPlatform)))
	return cacheKeyPrefix + platform + ":" + hex.EncodeToString(sum[:16])
}

func (c *ResultCache) get(ctx context.Context, key string) ([]types.JobPosting, bool) {
	data, err := c.store.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			c.logger.Warn("result cache read failed", "key", key, "err", err)
		}
		return nil, false
	}
	var jobs []types.JobPosting
	if err := json.Unmarshal(data, &jobs); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", key, "err", err)
		return nil, false
	}
	return jobs, true
}

func (c *ResultCache) set(ctx context.Context, key string, jobs []types.JobPosting) {
	if jobs == nil {
		jobs = []types.JobPosting{}
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		c.logger.Warn("encoding cache entry", "key", key, "err", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("result cache write failed", "key", key, "err", err)
	}
}

type cachedPlatform struct {
	cache *ResultCache
	inner search.Platform
}

func (p *cachedPlatform) Name() string { return p.inner.Name() }

func (p *cachedPlatform) Search(ctx context.Context, q search.Query, cfg types.StreamConfig) ([]types.JobPosting, error) {
	key := p.cache.key(p.Name(), q, cfg)
	if jobs, ok := p.cache.get(ctx, key); ok {
		p.cache.logger.Debug("result cache hit", "platform", p.Name(), "jobs", len(jobs))
		return jobs, nil
	}
	jobs, err := p.inner.Search(ctx, q, cfg)
	if err != nil {
		return nil, err
	}
	p.cache.set(ctx, key, jobs)
	return jobs, nil
}

type cachedPager struct {
	*cachedPlatform
	pager search.Pager
}

// SearchPages replays a hit as one batch. A miss forwards every page as it
// arrives and stores the union once the platform finishes cleanly.
func (p *cachedPager) SearchPages(ctx context.Context, q search.Query, cfg types.StreamConfig, emit func([]types.JobPosting) error) error {
	key := p.cache.key(p.Name(), q, cfg)
	if jobs, ok := p.cache.get(ctx, key); ok {
		p.cache.logger.Debug("result cache hit", "platform", p.Name(), "jobs", len(jobs))
		if len(jobs) == 0 {
			return nil
		}
		return emit(jobs)
	}

	var all []types.JobPosting
	err := p.pager.SearchPages(ctx, q, cfg, func(batch []types.JobPosting) error {
		if err := emit(batch); err != nil {
			return err
		}
		all = append(all, batch...)
		return nil
	})
	if err != nil {
		return err
	}
	p.cache.set(ctx, key, all)
	return nil
}
