// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"

	"github.com/pdiddy/jobstream/pkg/types"
)

// ContainsRedFlag returns true if any red flag term appears (case-insensitive)
// anywhere in the combined title, company and description of j.
func ContainsRedFlag(j types.JobPosting, redFlags []string) bool {
	if len(redFlags) == 0 {
		return false
	}
	combined := strings.ToLower(j.Title + " " + j.Company + " " + j.Description)
	for _, flag := range redFlags {
		if flag == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(flag)) {
			return true
		}
	}
	return false
}

// dropRedFlags returns the postings of batch that contain no red flag.
func dropRedFlags(batch []types.JobPosting, redFlags []string) []types.JobPosting {
	if len(redFlags) == 0 {
		return batch
	}
	kept := batch[:0:0]
	for _, j := range batch {
		if !ContainsRedFlag(j, redFlags) {
			kept = append(kept, j)
		}
	}
	return kept
}
