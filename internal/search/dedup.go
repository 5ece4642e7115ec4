// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/pdiddy/jobstream/pkg/types"
)

// IdentityFunc returns the duplicate-detection key of a posting.
type IdentityFunc func(types.JobPosting) string

// Deduplicator holds the set of identities seen during one run. It is safe
// for concurrent use; Accept is serialized so exactly one caller wins a race
// on the same identity.
type Deduplicator struct {
	identity IdentityFunc

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeduplicator returns an empty Deduplicator using the identity rule for
// mode. Unknown modes fall back to IdentityURL.
func NewDeduplicator(mode types.IdentityMode) *Deduplicator {
	return &Deduplicator{
		identity: IdentityFor(mode),
		seen:     make(map[string]struct{}),
	}
}

// Accept marks id as seen and returns true on its first occurrence. Every
// later call with the same id returns false.
func (d *Deduplicator) Accept(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

// Filter returns the postings of batch not seen before, in batch order.
// Repeats inside batch are dropped as well.
func (d *Deduplicator) Filter(batch []types.JobPosting) []types.JobPosting {
	kept := make([]types.JobPosting, 0, len(batch))
	for _, j := range batch {
		if d.Accept(d.identity(j)) {
			kept = append(kept, j)
		}
	}
	return kept
}

// Len returns the number of distinct identities seen.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// IdentityFor returns the identity rule for mode.
func IdentityFor(mode types.IdentityMode) IdentityFunc {
	switch mode {
	case types.IdentityComposite:
		return CompositeIdentity
	case types.IdentityContent:
		return ContentIdentity
	default:
		return URLIdentity
	}
}

// URLIdentity keys a posting by its canonical URL. Postings without a usable
// URL fall back to CompositeIdentity.
func URLIdentity(j types.JobPosting) string {
	if u, ok := canonicalURL(j.URL); ok {
		return "url:" + u
	}
	return CompositeIdentity(j)
}

// CompositeIdentity keys a posting by platform, title and company.
func CompositeIdentity(j types.JobPosting) string {
	return "composite:" + normalizeText(j.Platform) + "|" + normalizeText(j.Title) + "|" + normalizeText(j.Company)
}

// ContentIdentity keys a posting by title, company and location, ignoring
// the platform it came from.
func ContentIdentity(j types.JobPosting) string {
	return "content:" + normalizeText(j.Title) + "|" + normalizeText(j.Company) + "|" + normalizeText(j.Location)
}

// normalizeText returns a lowercased, punctuation-stripped version of s.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// trackingParams are query parameters that differ between links to the
// same posting and are dropped before comparison.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"fbclid":       {},
	"ref":          {},
	"source":       {},
}

// canonicalURL lowercases scheme and host, drops "www.", default ports, the
// fragment, a trailing slash and tracking parameters, and sorts the rest of
// the query. It reports false for empty or host-less input.
func canonicalURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "http" {
		scheme = "https"
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	p := path.Clean("/" + u.Path)
	p = strings.TrimSuffix(p, "/")

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		if _, drop := trackingParams[strings.ToLower(k)]; drop {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(scheme + "://" + host + p)
	for i, k := range keys {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		vals := q[k]
		sort.Strings(vals)
		for vi, v := range vals {
			if vi > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k) + "=" + url.QueryEscape(v))
		}
	}
	return b.String(), true
}
