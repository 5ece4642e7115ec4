// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by platform searchers.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout for one request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with outbound requests
	// (e.g. "jobstream/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// IdentityMode selects how postings are recognised as duplicates.
type IdentityMode string

const (
	// IdentityURL keys postings by canonical URL, falling back to the
	// composite key when the URL is missing or unparsable.
	IdentityURL IdentityMode = "url"

	// IdentityComposite keys postings by platform, title and company.
	IdentityComposite IdentityMode = "composite"

	// IdentityContent keys postings by title, company and location, merging
	// the same job listed on different platforms under different URLs.
	IdentityContent IdentityMode = "content"
)

// StreamConfig holds settings for one aggregation run.
type StreamConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PlatformTimeout bounds each platform search (default 20s).
	PlatformTimeout time.Duration `json:"platform_timeout" yaml:"platform_timeout" mapstructure:"platform_timeout"`

	// MaxConcurrency caps the number of platform searches in flight.
	// Zero runs every platform at once.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency" mapstructure:"max_concurrency"`

	// MaxResultsPerPlatform caps how many postings one platform may return
	// (default 50).
	MaxResultsPerPlatform int `json:"max_results_per_platform" yaml:"max_results_per_platform" mapstructure:"max_results_per_platform"`

	// Identity selects the duplicate detection rule (default "url").
	Identity IdentityMode `json:"identity" yaml:"identity" mapstructure:"identity"`
}

// PlatformsConfig enables platforms and carries their credentials.
type PlatformsConfig struct {
	EnableAdzuna         bool   `json:"enable_adzuna" yaml:"enable_adzuna" mapstructure:"enable_adzuna"`
	AdzunaAppID          string `json:"adzuna_app_id,omitempty" yaml:"adzuna_app_id,omitempty" mapstructure:"adzuna_app_id"`
	AdzunaAppKey         string `json:"adzuna_app_key,omitempty" yaml:"adzuna_app_key,omitempty" mapstructure:"adzuna_app_key"`
	AdzunaCountry        string `json:"adzuna_country" yaml:"adzuna_country" mapstructure:"adzuna_country"`
	EnableRemotive       bool   `json:"enable_remotive" yaml:"enable_remotive" mapstructure:"enable_remotive"`
	EnableArbeitnow      bool   `json:"enable_arbeitnow" yaml:"enable_arbeitnow" mapstructure:"enable_arbeitnow"`
	EnableWeWorkRemotely bool   `json:"enable_weworkremotely" yaml:"enable_weworkremotely" mapstructure:"enable_weworkremotely"`
}

// HistoryConfig selects and tunes the search history store.
type HistoryConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is the SQLite file path or the Postgres connection URL.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`

	// Retention is how long records are kept (default 720h).
	Retention time.Duration `json:"retention" yaml:"retention" mapstructure:"retention"`

	// CleanupSchedule is a cron spec for expiring old records (default "@every 1h").
	CleanupSchedule string `json:"cleanup_schedule" yaml:"cleanup_schedule" mapstructure:"cleanup_schedule"`
}

// RedisConfig enables the platform result cache and run quotas.
type RedisConfig struct {
	// URL is a redis:// connection URL. Empty disables both features.
	URL string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`

	// CacheTTL is how long a platform's postings are cached per query.
	// Zero disables caching.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// QuotaPerHour is the number of runs one user may start per hour.
	// Zero disables the quota.
	QuotaPerHour int `json:"quota_per_hour" yaml:"quota_per_hour" mapstructure:"quota_per_hour"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr      string `json:"addr" yaml:"addr" mapstructure:"addr"`
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty" mapstructure:"jwt_secret"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "text" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every section of jobstream.yaml.
type Config struct {
	Stream    StreamConfig    `json:"stream" yaml:"stream" mapstructure:"stream"`
	Platforms PlatformsConfig `json:"platforms" yaml:"platforms" mapstructure:"platforms"`
	History   HistoryConfig   `json:"history" yaml:"history" mapstructure:"history"`
	Redis     RedisConfig     `json:"redis" yaml:"redis" mapstructure:"redis"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
