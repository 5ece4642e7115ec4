// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/jobstream/internal/httputil"
	"github.com/pdiddy/jobstream/pkg/types"
)

// remotiveAPIBase is the Remotive remote-jobs endpoint. Declared as a var so
// tests can substitute an httptest server.
var remotiveAPIBase = "https://remotive.com/api/remote-jobs"

// remotiveTimeLayout is the zone-less timestamp Remotive uses.
const remotiveTimeLayout = "2006-01-02T15:04:05"

// RemotivePlatform queries the Remotive API. Every Remotive posting is
// remote; a location in the query filters on the candidate region.
type RemotivePlatform struct {
	Client *http.Client
}

// Name returns the platform identifier.
func (p *RemotivePlatform) Name() string { return "remotive" }

// Search fetches one result set from Remotive.
func (p *RemotivePlatform) Search(ctx context.Context, query Query, cfg types.StreamConfig) ([]types.JobPosting, error) {
	limit := maxResults(cfg)
	params := url.Values{}
	if query.Keywords != "" {
		params.Set("search", query.Keywords)
	}
	params.Set("limit", fmt.Sprint(limit))
	endpoint := remotiveAPIBase + "?" + params.Encode()

	var resp remotiveResponse
	if err := httputil.GetJSON(ctx, p.Client, endpoint, cfg.UserAgent, &resp); err != nil {
		return nil, fmt.Errorf("remotive: %w", err)
	}

	var jobs []types.JobPosting
	for _, r := range resp.Jobs {
		j := types.JobPosting{
			URL:         r.URL,
			Title:       strings.TrimSpace(r.Title),
			Company:     strings.TrimSpace(r.CompanyName),
			Location:    strings.TrimSpace(r.CandidateRequiredLocation),
			Platform:    p.Name(),
			Description: r.Description,
			Remote:      true,
			Tags:        r.Tags,
			Raw:         r.raw,
		}
		if r.Category != "" {
			j.Tags = append(j.Tags, r.Category)
		}
		if t, err := time.Parse(remotiveTimeLayout, r.PublicationDate); err == nil {
			j.PostedAt = t
		}
		if !matchesLocation(j, query.Location) {
			continue
		}
		jobs = append(jobs, j)
		if len(jobs) == limit {
			break
		}
	}
	return jobs, nil
}

// Remotive JSON response structures.
type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	ID                        int      `json:"id"`
	URL                       string   `json:"url"`
	Title                     string   `json:"title"`
	CompanyName               string   `json:"company_name"`
	Category                  string   `json:"category"`
	Tags                      []string `json:"tags"`
	JobType                   string   `json:"job_type"`
	PublicationDate           string   `json:"publication_date"`
	CandidateRequiredLocation string   `json:"candidate_required_location"`
	Salary                    string   `json:"salary"`
	Description               string   `json:"description"`
	raw                       json.RawMessage
}

// UnmarshalJSON keeps the source payload alongside the decoded fields.
func (r *remotiveJob) UnmarshalJSON(data []byte) error {
	type plain remotiveJob
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = remotiveJob(p)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// matchesLocation reports whether j's location mentions loc. An empty loc,
// or a posting open worldwide, always matches.
func matchesLocation(j types.JobPosting, loc string) bool {
	if loc == "" {
		return true
	}
	have := strings.ToLower(j.Location)
	if have == "" || strings.Contains(have, "worldwide") || strings.Contains(have, "anywhere") {
		return true
	}
	return strings.Contains(have, strings.ToLower(loc))
}
