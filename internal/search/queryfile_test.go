// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/jobstream/pkg/types"
)

func TestResultFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")
	posted := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	res := Result{
		RunID: "run-1",
		Jobs: []types.JobPosting{
			{URL: "https://x.example/1", Title: "Go Engineer", Company: "Acme", Platform: "remotive", PostedAt: posted, Raw: []byte(`{"id":1}`)},
		},
		Pagination:     types.Pagination{Page: 1, PerPage: 20, Total: 1, TotalPages: 1},
		PlatformErrors: map[string]string{"b": "timeout", "a": "HTTP 500"},
	}

	err := WriteResultFile(path, Query{Keywords: " go ", Location: "remote", Exclude: []string{"crypto"}}, res)
	require.NoError(t, err)

	rf, err := ReadResultFile(path)
	require.NoError(t, err)
	assert.Equal(t, "go", rf.Query.Keywords)
	assert.True(t, rf.Query.Remote)
	assert.Empty(t, rf.Query.Location)
	assert.Equal(t, []string{"crypto"}, rf.Query.Exclude)
	assert.Equal(t, "run-1", rf.Summary.RunID)
	assert.Equal(t, 1, rf.Summary.Total)
	assert.Equal(t, []string{"a: HTTP 500", "b: timeout"}, rf.Summary.PlatformErrors)
	assert.False(t, rf.Summary.Timestamp.IsZero())

	require.Len(t, rf.Jobs, 1)
	assert.Equal(t, "Go Engineer", rf.Jobs[0].Title)
	assert.True(t, posted.Equal(rf.Jobs[0].PostedAt))
	assert.Nil(t, rf.Jobs[0].Raw, "raw payloads are not written to result files")

	q := rf.Query.ToQuery()
	assert.Equal(t, "go", q.Keywords)
	assert.True(t, q.Remote)
}

func TestReadResultFile_Errors(t *testing.T) {
	_, err := ReadResultFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading result file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("jobs: [unclosed"), 0o644))
	_, err = ReadResultFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing result file")
}
