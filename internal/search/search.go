// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search fans a job query out to external job platforms, filters and
// deduplicates their postings, and drives the event stream of one run.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/jobstream/pkg/types"
)

// Platform searches a single external job board. Each platform (Adzuna,
// Remotive, ...) implements this interface.
type Platform interface {
	Name() string
	Search(ctx context.Context, query Query, cfg types.StreamConfig) ([]types.JobPosting, error)
}

// Pager is implemented by platforms whose API pages results. The aggregator
// prefers it over Search so that every page reaches the client as soon as it
// arrives. emit returns an error when the run no longer accepts batches; the
// platform must stop and return that error.
type Pager interface {
	Platform
	SearchPages(ctx context.Context, query Query, cfg types.StreamConfig, emit func([]types.JobPosting) error) error
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
	maxKeywordLen  = 200
)

// Query holds the search parameters of one run.
type Query struct {
	Keywords string
	Location string
	Remote   bool

	// Platforms restricts the run to the named platforms. Empty means all.
	Platforms []string

	// Exclude lists red-flag terms; postings mentioning any of them are dropped.
	Exclude []string

	// Page and PerPage select the slice returned by Collect. Streaming runs
	// ignore them.
	Page    int
	PerPage int
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return q.Keywords == "" && q.Location == "" && !q.Remote
}

// Normalize returns a copy with whitespace collapsed, platform names
// lower-cased, and pagination defaults applied.
func (q Query) Normalize() Query {
	n := Query{
		Keywords: collapse(q.Keywords),
		Location: collapse(q.Location),
		Remote:   q.Remote,
		Page:     q.Page,
		PerPage:  q.PerPage,
	}
	for _, p := range q.Platforms {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			n.Platforms = append(n.Platforms, p)
		}
	}
	for _, t := range q.Exclude {
		if t = collapse(t); t != "" {
			n.Exclude = append(n.Exclude, t)
		}
	}
	if strings.EqualFold(n.Location, "remote") {
		n.Location = ""
		n.Remote = true
	}
	if n.Page == 0 {
		n.Page = 1
	}
	if n.PerPage == 0 {
		n.PerPage = defaultPerPage
	}
	return n
}

// Validate checks a normalized query. It returns a *RunError describing the
// first problem found.
func (q Query) Validate() error {
	switch {
	case q.IsEmpty():
		return &RunError{Message: "query is empty: provide keywords, a location, or remote"}
	case len(q.Keywords) > maxKeywordLen:
		return &RunError{Message: fmt.Sprintf("keywords exceed %d characters", maxKeywordLen)}
	case q.Page < 1:
		return &RunError{Message: fmt.Sprintf("page must be at least 1, got %d", q.Page)}
	case q.PerPage < 1 || q.PerPage > maxPerPage:
		return &RunError{Message: fmt.Sprintf("per_page must be between 1 and %d, got %d", maxPerPage, q.PerPage)}
	}
	return nil
}

// CacheKey identifies the platform-facing part of the query. Pagination and
// platform selection do not change what a platform returns and are omitted.
func (q Query) CacheKey() string {
	remote := "0"
	if q.Remote {
		remote = "1"
	}
	return strings.ToLower(q.Keywords) + "|" + strings.ToLower(q.Location) + "|" + remote
}

// terms returns the query as a single free-text string for APIs that take
// one search box.
func (q Query) terms() string {
	if q.Remote && q.Keywords != "" {
		return q.Keywords + " remote"
	}
	if q.Keywords == "" && q.Remote {
		return "remote"
	}
	return q.Keywords
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Result is the synchronous projection of one run: every accepted posting
// in arrival order, paginated.
type Result struct {
	RunID          string             `json:"runId" yaml:"run_id"`
	Jobs           []types.JobPosting `json:"jobs" yaml:"jobs"`
	Pagination     types.Pagination   `json:"pagination" yaml:"pagination"`
	PlatformErrors map[string]string  `json:"platformErrors,omitempty" yaml:"platform_errors,omitempty"`
}

// collector is a Sink that accumulates a run's postings.
type collector struct {
	jobs   []types.JobPosting
	errors map[string]string
}

func (c *collector) Emit(ev types.Event) error {
	switch e := ev.(type) {
	case types.JobsEvent:
		c.jobs = append(c.jobs, e.Jobs...)
	case types.PlatformCompleteEvent:
		if e.Error != "" {
			if c.errors == nil {
				c.errors = make(map[string]string)
			}
			c.errors[e.Platform] = e.Error
		}
	}
	return nil
}

// Collect runs the aggregator to completion and returns the requested page
// of accumulated postings. Run-level failures are returned as *RunError.
func Collect(ctx context.Context, agg *Aggregator, query Query) (Result, error) {
	var c collector
	summary, err := agg.Run(ctx, query, &c)
	if err != nil {
		return Result{RunID: summary.RunID}, err
	}
	q := query.Normalize()
	jobs, page := paginate(c.jobs, q.Page, q.PerPage)
	return Result{
		RunID:          summary.RunID,
		Jobs:           jobs,
		Pagination:     page,
		PlatformErrors: c.errors,
	}, nil
}

// paginate returns the 1-based page of jobs. A page past the end yields an
// empty slice with HasMore false.
func paginate(jobs []types.JobPosting, page, perPage int) ([]types.JobPosting, types.Pagination) {
	total := len(jobs)
	p := types.Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	start := (page - 1) * perPage
	if start >= total {
		return []types.JobPosting{}, p
	}
	end := start + perPage
	if end > total {
		end = total
	}
	p.HasMore = end < total
	return jobs[start:end], p
}
