// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"sort"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/jobstream/pkg/types"
)

// ResultFile is the on-disk representation of a search and its postings.
// A saved search can be printed again later without re-querying platforms.
type ResultFile struct {
	Query   QueryParams        `yaml:"query"`
	Jobs    []types.JobPosting `yaml:"jobs"`
	Summary ResultSummary      `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Keywords  string   `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Location  string   `json:"location,omitempty" yaml:"location,omitempty"`
	Remote    bool     `json:"remote,omitempty" yaml:"remote,omitempty"`
	Platforms []string `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	Exclude   []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// ResultSummary stores result statistics and a timestamp.
type ResultSummary struct {
	RunID          string    `yaml:"run_id"`
	Total          int       `yaml:"total"`
	PlatformErrors []string  `yaml:"platform_errors,omitempty"`
	Timestamp      time.Time `yaml:"timestamp"`
}

// WriteResultFile saves a query and its collected result to a YAML file.
func WriteResultFile(path string, query Query, res Result) error {
	rf := ResultFile{
		Query: ParamsOf(query),
		Jobs:  res.Jobs,
		Summary: ResultSummary{
			RunID:     res.RunID,
			Total:     res.Pagination.Total,
			Timestamp: time.Now(),
		},
	}
	for platform, reason := range res.PlatformErrors {
		rf.Summary.PlatformErrors = append(rf.Summary.PlatformErrors, platform+": "+reason)
	}
	sort.Strings(rf.Summary.PlatformErrors)

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling result file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResultFile loads a previously saved result file from disk.
func ReadResultFile(path string) (*ResultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}
	var rf ResultFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing result file: %w", err)
	}
	return &rf, nil
}

// ParamsOf returns the serializable form of the normalized query.
func ParamsOf(query Query) QueryParams {
	q := query.Normalize()
	return QueryParams{
		Keywords:  q.Keywords,
		Location:  q.Location,
		Remote:    q.Remote,
		Platforms: q.Platforms,
		Exclude:   q.Exclude,
	}
}

// ToQuery converts stored QueryParams back into a Query.
func (p QueryParams) ToQuery() Query {
	return Query{
		Keywords:  p.Keywords,
		Location:  p.Location,
		Remote:    p.Remote,
		Platforms: p.Platforms,
		Exclude:   p.Exclude,
	}
}
