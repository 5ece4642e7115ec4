// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/jobstream/internal/httputil"
	"github.com/pdiddy/jobstream/pkg/types"
)

// adzunaAPIBase is the Adzuna jobs endpoint. Declared as a var so tests
// can substitute an httptest server.
var adzunaAPIBase = "https://api.adzuna.com/v1/api/jobs"

const (
	adzunaPageSize       = 50
	adzunaMaxPages       = 3
	defaultAdzunaCountry = "us"
)

// ErrMissingCredentials is returned by platforms that need API keys when
// none are configured.
var ErrMissingCredentials = errors.New("API credentials not configured")

// AdzunaPlatform queries the Adzuna search API page by page.
type AdzunaPlatform struct {
	Client  *http.Client
	AppID   string
	AppKey  string
	Country string
}

// Name returns the platform identifier.
func (p *AdzunaPlatform) Name() string { return "adzuna" }

// Search collects every page into a single slice.
func (p *AdzunaPlatform) Search(ctx context.Context, query Query, cfg types.StreamConfig) ([]types.JobPosting, error) {
	var all []types.JobPosting
	err := p.SearchPages(ctx, query, cfg, func(batch []types.JobPosting) error {
		all = append(all, batch...)
		return nil
	})
	return all, err
}

// SearchPages fetches up to three pages and hands each one to emit as it
// arrives. It stops early on a short page or once MaxResultsPerPlatform
// postings have been emitted.
func (p *AdzunaPlatform) SearchPages(ctx context.Context, query Query, cfg types.StreamConfig, emit func([]types.JobPosting) error) error {
	if p.AppID == "" || p.AppKey == "" {
		return ErrMissingCredentials
	}
	limit := maxResults(cfg)
	perPage := min(adzunaPageSize, limit)

	sent := 0
	for page := 1; page <= adzunaMaxPages && sent < limit; page++ {
		batch, err := p.fetchPage(ctx, query, cfg, page, perPage)
		if err != nil {
			return fmt.Errorf("adzuna page %d: %w", page, err)
		}
		if len(batch) > limit-sent {
			batch = batch[:limit-sent]
		}
		if len(batch) > 0 {
			if err := emit(batch); err != nil {
				return err
			}
			sent += len(batch)
		}
		if len(batch) < perPage {
			break
		}
	}
	return nil
}

func (p *AdzunaPlatform) fetchPage(ctx context.Context, query Query, cfg types.StreamConfig, page, perPage int) ([]types.JobPosting, error) {
	country := p.Country
	if country == "" {
		country = defaultAdzunaCountry
	}

	params := url.Values{}
	params.Set("app_id", p.AppID)
	params.Set("app_key", p.AppKey)
	params.Set("results_per_page", strconv.Itoa(perPage))
	if t := query.terms(); t != "" {
		params.Set("what", t)
	}
	if query.Location != "" {
		params.Set("where", query.Location)
	}
	params.Set("content-type", "application/json")
	endpoint := fmt.Sprintf("%s/%s/search/%d?%s", adzunaAPIBase, url.PathEscape(country), page, params.Encode())

	var resp adzunaResponse
	if err := httputil.GetJSON(ctx, p.Client, endpoint, cfg.UserAgent, &resp); err != nil {
		return nil, err
	}

	jobs := make([]types.JobPosting, 0, len(resp.Results))
	for _, r := range resp.Results {
		j := types.JobPosting{
			URL:         r.RedirectURL,
			Title:       strings.TrimSpace(r.Title),
			Company:     strings.TrimSpace(r.Company.DisplayName),
			Location:    strings.TrimSpace(r.Location.DisplayName),
			Platform:    p.Name(),
			Description: strings.TrimSpace(r.Description),
			SalaryMin:   r.SalaryMin,
			SalaryMax:   r.SalaryMax,
			Raw:         r.raw,
		}
		if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
			j.PostedAt = t
		}
		if r.ContractTime != "" {
			j.Tags = append(j.Tags, r.ContractTime)
		}
		if r.ContractType != "" {
			j.Tags = append(j.Tags, r.ContractType)
		}
		j.Remote = strings.Contains(strings.ToLower(j.Title+" "+j.Location), "remote")
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Adzuna JSON response structures.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

type adzunaResult struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Company      adzunaName `json:"company"`
	Location     adzunaName `json:"location"`
	SalaryMin    float64    `json:"salary_min"`
	SalaryMax    float64    `json:"salary_max"`
	RedirectURL  string     `json:"redirect_url"`
	Created      string     `json:"created"`
	ContractTime string     `json:"contract_time"`
	ContractType string     `json:"contract_type"`
	raw          json.RawMessage
}

// UnmarshalJSON keeps the source payload alongside the decoded fields.
func (r *adzunaResult) UnmarshalJSON(data []byte) error {
	type plain adzunaResult
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = adzunaResult(p)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

type adzunaName struct {
	DisplayName string `json:"display_name"`
}

// maxResults returns the per-platform posting cap.
func maxResults(cfg types.StreamConfig) int {
	if cfg.MaxResultsPerPlatform > 0 {
		return cfg.MaxResultsPerPlatform
	}
	return adzunaPageSize
}
