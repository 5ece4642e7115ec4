// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by the jobstream server,
// the aggregator, and the stream client: job postings, stream events, and
// configuration.
package types

import (
	"encoding/json"
	"time"
)

// JobPosting is a job record returned by one external platform. Postings are
// immutable snapshots once they leave the platform searcher.
type JobPosting struct {
	// URL is the canonical link to the posting and the primary identity key.
	URL string `json:"url" yaml:"url"`

	Title    string `json:"title" yaml:"title"`
	Company  string `json:"company" yaml:"company"`
	Location string `json:"location" yaml:"location"`

	// Platform tags the source that returned this posting (e.g. "adzuna").
	Platform string `json:"platform" yaml:"platform"`

	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Remote      bool      `json:"remote,omitempty" yaml:"remote,omitempty"`
	PostedAt    time.Time `json:"postedAt,omitempty" yaml:"posted_at,omitempty"`
	SalaryMin   float64   `json:"salaryMin,omitempty" yaml:"salary_min,omitempty"`
	SalaryMax   float64   `json:"salaryMax,omitempty" yaml:"salary_max,omitempty"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Raw is the source payload as returned by the platform.
	Raw json.RawMessage `json:"raw,omitempty" yaml:"-"`
}

// Pagination describes the slice of an aggregated result returned by the
// non-streaming search endpoint.
type Pagination struct {
	Page       int  `json:"page" yaml:"page"`
	PerPage    int  `json:"perPage" yaml:"per_page"`
	Total      int  `json:"total" yaml:"total"`
	TotalPages int  `json:"totalPages" yaml:"total_pages"`
	HasMore    bool `json:"hasMore" yaml:"has_more"`
}
