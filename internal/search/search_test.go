// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/jobstream/pkg/types"
)

// --- Query ---

func TestQueryNormalize(t *testing.T) {
	q := Query{
		Keywords:  "  golang   backend ",
		Location:  " Remote ",
		Platforms: []string{" Adzuna", "", "REMOTIVE"},
		Exclude:   []string{"  unpaid ", ""},
	}.Normalize()

	assert.Equal(t, "golang backend", q.Keywords)
	assert.Equal(t, "", q.Location)
	assert.True(t, q.Remote)
	assert.Equal(t, []string{"adzuna", "remotive"}, q.Platforms)
	assert.Equal(t, []string{"unpaid"}, q.Exclude)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, defaultPerPage, q.PerPage)
}

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr string
	}{
		{"keywords only", Query{Keywords: "go"}, ""},
		{"location only", Query{Location: "Berlin"}, ""},
		{"remote only", Query{Remote: true}, ""},
		{"empty", Query{}, "query is empty"},
		{"whitespace only", Query{Keywords: "   "}, "query is empty"},
		{"keywords too long", Query{Keywords: strings.Repeat("a", maxKeywordLen+1)}, "keywords exceed"},
		{"negative page", Query{Keywords: "go", Page: -1}, "page must be at least 1"},
		{"per page too large", Query{Keywords: "go", PerPage: maxPerPage + 1}, "per_page must be between"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Normalize().Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var re *RunError
			require.True(t, errors.As(err, &re))
			assert.Contains(t, re.Message, tt.wantErr)
		})
	}
}

func TestQueryCacheKey(t *testing.T) {
	a := Query{Keywords: "Go", Location: "Berlin", Page: 1, Platforms: []string{"adzuna"}}
	b := Query{Keywords: "go", Location: "berlin", Page: 3}
	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), Query{Keywords: "go", Location: "berlin", Remote: true}.CacheKey())
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, "go", Query{Keywords: "go"}.terms())
	assert.Equal(t, "go remote", Query{Keywords: "go", Remote: true}.terms())
	assert.Equal(t, "remote", Query{Remote: true}.terms())
	assert.Equal(t, "", Query{Location: "Berlin"}.terms())
}

// --- Dedup ---

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"https://example.com/jobs/1", "https://example.com/jobs/1", true},
		{"HTTP://WWW.Example.com/jobs/1/", "https://example.com/jobs/1", true},
		{"example.com/jobs/1", "https://example.com/jobs/1", true},
		{"https://example.com:443/jobs/1#apply", "https://example.com/jobs/1", true},
		{"https://example.com:8080/jobs/1", "https://example.com:8080/jobs/1", true},
		{"https://example.com/jobs/1?utm_source=x&b=2&a=1&gclid=z", "https://example.com/jobs/1?a=1&b=2", true},
		{"https://example.com/a/../jobs/./1", "https://example.com/jobs/1", true},
		{"", "", false},
		{"   ", "", false},
		{"https://", "", false},
	}
	for _, tt := range tests {
		got, ok := canonicalURL(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("canonicalURL(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIdentityRules(t *testing.T) {
	a := types.JobPosting{URL: "https://www.example.com/jobs/1?utm_source=feed", Title: "Go Dev", Company: "Acme", Location: "Berlin", Platform: "adzuna"}
	b := types.JobPosting{URL: "https://example.com/jobs/1/", Title: "Go Developer", Company: "Acme Inc", Location: "Berlin", Platform: "remotive"}
	c := types.JobPosting{URL: "https://other.example/99", Title: "Go Dev!", Company: "ACME", Location: "berlin", Platform: "arbeitnow"}
	noURL := types.JobPosting{Title: "Go Dev", Company: "Acme", Platform: "adzuna"}

	assert.Equal(t, URLIdentity(a), URLIdentity(b), "same canonical URL")
	assert.NotEqual(t, URLIdentity(a), URLIdentity(c))
	assert.Equal(t, CompositeIdentity(noURL), URLIdentity(noURL), "empty URL falls back to composite")

	assert.Equal(t, CompositeIdentity(a), CompositeIdentity(noURL))
	assert.NotEqual(t, CompositeIdentity(a), CompositeIdentity(c), "composite includes platform")

	assert.Equal(t, ContentIdentity(a), ContentIdentity(c), "content ignores platform, case and punctuation")
	assert.NotEqual(t, ContentIdentity(a), ContentIdentity(b))
}

func TestIdentityFor(t *testing.T) {
	j := types.JobPosting{URL: "https://example.com/1", Title: "T", Company: "C", Platform: "p"}
	assert.Equal(t, URLIdentity(j), IdentityFor("")(j))
	assert.Equal(t, URLIdentity(j), IdentityFor(types.IdentityURL)(j))
	assert.Equal(t, CompositeIdentity(j), IdentityFor(types.IdentityComposite)(j))
	assert.Equal(t, ContentIdentity(j), IdentityFor(types.IdentityContent)(j))
}

func TestDeduplicatorFilter(t *testing.T) {
	d := NewDeduplicator(types.IdentityURL)
	first := d.Filter([]types.JobPosting{
		{URL: "https://example.com/1", Title: "one"},
		{URL: "https://example.com/2", Title: "two"},
		{URL: "https://example.com/1/", Title: "one again"},
	})
	require.Len(t, first, 2)
	assert.Equal(t, "one", first[0].Title)
	assert.Equal(t, "two", first[1].Title)

	second := d.Filter([]types.JobPosting{
		{URL: "https://www.example.com/2", Title: "two elsewhere"},
		{URL: "https://example.com/3", Title: "three"},
	})
	require.Len(t, second, 1)
	assert.Equal(t, "three", second[0].Title)
	assert.Equal(t, 3, d.Len())

	assert.Empty(t, d.Filter(nil))
}

func TestDeduplicatorAcceptConcurrent(t *testing.T) {
	d := NewDeduplicator(types.IdentityURL)
	const workers = 16
	const ids = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := make(map[string]int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < ids; i++ {
				id := fmt.Sprintf("id-%d", i)
				if d.Accept(id) {
					mu.Lock()
					wins[id]++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, wins, ids)
	for id, n := range wins {
		assert.Equal(t, 1, n, "identity %s accepted more than once", id)
	}
	assert.Equal(t, ids, d.Len())
}

// --- Red flags ---

func TestContainsRedFlag(t *testing.T) {
	j := types.JobPosting{Title: "Go Engineer", Company: "Acme", Description: "Unpaid internship, commission only"}
	tests := []struct {
		flags []string
		want  bool
	}{
		{nil, false},
		{[]string{""}, false},
		{[]string{"UNPAID"}, true},
		{[]string{"crypto", "commission only"}, true},
		{[]string{"acme"}, true},
		{[]string{"crypto"}, false},
	}
	for _, tt := range tests {
		if got := ContainsRedFlag(j, tt.flags); got != tt.want {
			t.Errorf("ContainsRedFlag(%v) = %v, want %v", tt.flags, got, tt.want)
		}
	}
}

func TestDropRedFlags(t *testing.T) {
	batch := []types.JobPosting{
		{Title: "Go Engineer"},
		{Title: "Crypto Go Engineer"},
		{Title: "Rust Engineer"},
	}
	kept := dropRedFlags(batch, []string{"crypto"})
	require.Len(t, kept, 2)
	assert.Equal(t, "Go Engineer", kept[0].Title)
	assert.Equal(t, "Rust Engineer", kept[1].Title)
	assert.Equal(t, "Crypto Go Engineer", batch[1].Title, "input batch is not modified")

	assert.Len(t, dropRedFlags(batch, nil), 3)
}

// --- Pagination ---

func TestPaginate(t *testing.T) {
	jobs := make([]types.JobPosting, 5)
	for i := range jobs {
		jobs[i].Title = fmt.Sprint(i)
	}

	tests := []struct {
		name       string
		page, per  int
		wantTitles []string
		want       types.Pagination
	}{
		{"first page", 1, 2, []string{"0", "1"}, types.Pagination{Page: 1, PerPage: 2, Total: 5, TotalPages: 3, HasMore: true}},
		{"last page", 3, 2, []string{"4"}, types.Pagination{Page: 3, PerPage: 2, Total: 5, TotalPages: 3}},
		{"past the end", 4, 2, nil, types.Pagination{Page: 4, PerPage: 2, Total: 5, TotalPages: 3}},
		{"single page", 1, 20, []string{"0", "1", "2", "3", "4"}, types.Pagination{Page: 1, PerPage: 20, Total: 5, TotalPages: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, p := paginate(jobs, tt.page, tt.per)
			var titles []string
			for _, j := range got {
				titles = append(titles, j.Title)
			}
			assert.Equal(t, tt.wantTitles, titles)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, p)
		})
	}

	got, p := paginate(nil, 1, 20)
	assert.Empty(t, got)
	assert.Equal(t, types.Pagination{Page: 1, PerPage: 20}, p)
}
