// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/jobstream/internal/httputil"
	"github.com/pdiddy/jobstream/pkg/types"
)

// wwrFeedBase is the We Work Remotely search feed. Declared as a var so
// tests can substitute an httptest server.
var wwrFeedBase = "https://weworkremotely.com/remote-jobs/search.rss"

// WeWorkRemotelyPlatform reads the We Work Remotely RSS search feed.
type WeWorkRemotelyPlatform struct {
	Client *http.Client
}

// Name returns the platform identifier.
func (p *WeWorkRemotelyPlatform) Name() string { return "weworkremotely" }

// Search fetches the RSS feed for the query keywords.
func (p *WeWorkRemotelyPlatform) Search(ctx context.Context, query Query, cfg types.StreamConfig) ([]types.JobPosting, error) {
	endpoint := wwrFeedBase
	if query.Keywords != "" {
		endpoint += "?term=" + url.QueryEscape(query.Keywords)
	}

	var feed wwrFeed
	if err := httputil.GetXML(ctx, p.Client, endpoint, cfg.UserAgent, &feed); err != nil {
		return nil, fmt.Errorf("weworkremotely: %w", err)
	}

	limit := maxResults(cfg)
	var jobs []types.JobPosting
	for _, item := range feed.Channel.Items {
		company, title := splitWWRTitle(item.Title)
		j := types.JobPosting{
			URL:         strings.TrimSpace(item.Link),
			Title:       title,
			Company:     company,
			Location:    strings.TrimSpace(item.Region),
			Platform:    p.Name(),
			Description: strings.TrimSpace(item.Description),
			Remote:      true,
		}
		if item.Category != "" {
			j.Tags = []string{item.Category}
		}
		if t, err := time.Parse(time.RFC1123Z, strings.TrimSpace(item.PubDate)); err == nil {
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

// splitWWRTitle splits an item title of the form "Company: Job Title".
func splitWWRTitle(s string) (company, title string) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ":"); i > 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return "", s
}

// RSS feed XML structures.
type wwrFeed struct {
	Channel struct {
		Items []wwrItem `xml:"item"`
	} `xml:"channel"`
}

type wwrItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Region      string `xml:"region"`
	Category    string `xml:"category"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}
