// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/jobstream/internal/history"
	"github.com/pdiddy/jobstream/pkg/types"
)

// setDefaults registers every config key so that environment variables
// such as JOBSTREAM_REDIS_URL are seen by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("stream.timeout", 15*time.Second)
	v.SetDefault("stream.user_agent", "jobstream/"+version)
	v.SetDefault("stream.platform_timeout", 20*time.Second)
	v.SetDefault("stream.max_concurrency", 0)
	v.SetDefault("stream.max_results_per_platform", 50)
	v.SetDefault("stream.identity", string(types.IdentityURL))

	v.SetDefault("platforms.enable_adzuna", true)
	v.SetDefault("platforms.adzuna_app_id", "")
	v.SetDefault("platforms.adzuna_app_key", "")
	v.SetDefault("platforms.adzuna_country", "us")
	v.SetDefault("platforms.enable_remotive", true)
	v.SetDefault("platforms.enable_arbeitnow", true)
	v.SetDefault("platforms.enable_weworkremotely", true)

	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.dsn", "jobstream.db")
	v.SetDefault("history.retention", history.DefaultRetention)
	v.SetDefault("history.cleanup_schedule", history.DefaultCleanupSchedule)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.cache_ttl", 10*time.Minute)
	v.SetDefault("redis.quota_per_hour", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// loadConfig decodes the merged file, environment and flag values.
func loadConfig() (types.Config, error) {
	var c types.Config
	if err := viper.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	switch c.Stream.Identity {
	case types.IdentityURL, types.IdentityComposite, types.IdentityContent:
	default:
		return c, fmt.Errorf("stream.identity must be url, composite or content, got %q", c.Stream.Identity)
	}
	return c, nil
}

// newLogger builds the process logger from the log section.
func newLogger(lc types.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if lc.Level != "" {
		if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(lc.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log.format must be text or json, got %q", lc.Format)
	}
}
