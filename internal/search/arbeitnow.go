// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/jobstream/internal/httputil"
	"github.com/pdiddy/jobstream/pkg/types"
)

// arbeitnowAPIBase is the Arbeitnow job board endpoint. Declared as a var so
// tests can substitute an httptest server.
var arbeitnowAPIBase = "https://www.arbeitnow.com/api/job-board-api"

const arbeitnowMaxPages = 3

// ArbeitnowPlatform reads the Arbeitnow job board feed. The API has no search
// parameters, so postings are matched against the query locally and every
// page with matches becomes its own batch.
type ArbeitnowPlatform struct {
	Client *http.Client
}

// Name returns the platform identifier.
func (p *ArbeitnowPlatform) Name() string { return "arbeitnow" }

// Search collects every matching page into a single slice.
func (p *ArbeitnowPlatform) Search(ctx context.Context, query Query, cfg types.StreamConfig) ([]types.JobPosting, error) {
	var all []types.JobPosting
	err := p.SearchPages(ctx, query, cfg, func(batch []types.JobPosting) error {
		all = append(all, batch...)
		return nil
	})
	return all, err
}

// SearchPages walks the feed until it runs out, the page cap is reached, or
// MaxResultsPerPlatform matches have been emitted.
func (p *ArbeitnowPlatform) SearchPages(ctx context.Context, query Query, cfg types.StreamConfig, emit func([]types.JobPosting) error) error {
	limit := maxResults(cfg)
	sent := 0
	for page := 1; page <= arbeitnowMaxPages && sent < limit; page++ {
		var resp arbeitnowResponse
		endpoint := fmt.Sprintf("%s?page=%d", arbeitnowAPIBase, page)
		if err := httputil.GetJSON(ctx, p.Client, endpoint, cfg.UserAgent, &resp); err != nil {
			return fmt.Errorf("arbeitnow page %d: %w", page, err)
		}

		var batch []types.JobPosting
		for _, r := range resp.Data {
			j := r.posting(p.Name())
			if !matchesKeywords(j, query.Keywords) || !matchesLocation(j, query.Location) {
				continue
			}
			if query.Remote && !j.Remote {
				continue
			}
			batch = append(batch, j)
			if sent+len(batch) == limit {
				break
			}
		}
		if len(batch) > 0 {
			if err := emit(batch); err != nil {
				return err
			}
			sent += len(batch)
		}
		if resp.Links.Next == "" || len(resp.Data) == 0 {
			break
		}
	}
	return nil
}

// Arbeitnow JSON response structures.
type arbeitnowResponse struct {
	Data  []arbeitnowJob `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

type arbeitnowJob struct {
	Slug        string   `json:"slug"`
	CompanyName string   `json:"company_name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Remote      bool     `json:"remote"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
	JobTypes    []string `json:"job_types"`
	Location    string   `json:"location"`
	CreatedAt   int64    `json:"created_at"`
	raw         json.RawMessage
}

// UnmarshalJSON keeps the source payload alongside the decoded fields.
func (r *arbeitnowJob) UnmarshalJSON(data []byte) error {
	type plain arbeitnowJob
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = arbeitnowJob(p)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (r arbeitnowJob) posting(platform string) types.JobPosting {
	j := types.JobPosting{
		URL:         r.URL,
		Title:       strings.TrimSpace(r.Title),
		Company:     strings.TrimSpace(r.CompanyName),
		Location:    strings.TrimSpace(r.Location),
		Platform:    platform,
		Description: r.Description,
		Remote:      r.Remote,
		Tags:        append(append([]string(nil), r.Tags...), r.JobTypes...),
		Raw:         r.raw,
	}
	if r.CreatedAt > 0 {
		j.PostedAt = time.Unix(r.CreatedAt, 0).UTC()
	}
	return j
}

// matchesKeywords reports whether every keyword term appears in the title,
// company, tags or description of j.
func matchesKeywords(j types.JobPosting, keywords string) bool {
	terms := strings.Fields(strings.ToLower(keywords))
	if len(terms) == 0 {
		return true
	}
	hay := strings.ToLower(j.Title + " " + j.Company + " " + strings.Join(j.Tags, " ") + " " + j.Description)
	for _, t := range terms {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}
