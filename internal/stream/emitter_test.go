// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/jobstream/pkg/types"
)

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, types.PlatformCompleteEvent{Platform: "adzuna", JobCount: 3}))
	assert.Equal(t, "event: platform-complete\ndata: {\"platform\":\"adzuna\",\"jobCount\":3}\n\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteFrame(&buf, types.ErrorEvent{Message: "line one\nline two"}))
	assert.Equal(t, "event: error\ndata: {\"error\":\"line one\\nline two\"}\n\n", buf.String(),
		"newlines in payloads stay escaped on one data line")
}

func TestEmitter_WritesFramesInOrder(t *testing.T) {
	rec := httptest.NewRecorder()
	em, err := NewEmitter(rec, nil)
	require.NoError(t, err)

	require.NoError(t, em.Emit(types.StartEvent{RunID: "r1"}))
	require.NoError(t, em.Emit(types.ProgressEvent{Platform: "a", Message: "searching a"}))
	require.NoError(t, em.Emit(types.CompleteEvent{TotalJobs: 0}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.True(t, rec.Flushed)

	want := "event: start\ndata: {\"runId\":\"r1\"}\n\n" +
		"event: progress\ndata: {\"platform\":\"a\",\"message\":\"searching a\"}\n\n" +
		"event: complete\ndata: {\"totalJobs\":0}\n\n"
	assert.Equal(t, want, rec.Body.String())
	assert.True(t, em.Terminated())
}

func TestEmitter_RejectsAfterTerminal(t *testing.T) {
	for _, terminal := range []types.Event{types.CompleteEvent{TotalJobs: 1}, types.ErrorEvent{Message: "bad query"}} {
		t.Run(string(terminal.Name()), func(t *testing.T) {
			rec := httptest.NewRecorder()
			em, err := NewEmitter(rec, nil)
			require.NoError(t, err)

			require.NoError(t, em.Emit(types.StartEvent{}))
			require.NoError(t, em.Emit(terminal))
			written := rec.Body.Len()

			assert.ErrorIs(t, em.Emit(types.ProgressEvent{Platform: "a"}), ErrStreamClosed)
			assert.ErrorIs(t, em.Emit(types.CompleteEvent{}), ErrStreamClosed)
			assert.Equal(t, written, rec.Body.Len(), "nothing written after the terminal event")
			assert.Equal(t, 1, strings.Count(rec.Body.String(), "event: "+string(terminal.Name())+"\n"))
		})
	}
}

// brokenWriter fails every write after the first n bytes.
type brokenWriter struct {
	header http.Header
	limit  int
	n      int
}

func (w *brokenWriter) Header() http.Header { return w.header }
func (w *brokenWriter) WriteHeader(int)     {}
func (w *brokenWriter) Flush()              {}

func (w *brokenWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		return 0, errors.New("connection reset by peer")
	}
	w.n += len(p)
	return len(p), nil
}

func TestEmitter_WriteFailureCancelsOnce(t *testing.T) {
	w := &brokenWriter{header: http.Header{}, limit: 40}
	cancels := 0
	em, err := NewEmitter(w, func() { cancels++ })
	require.NoError(t, err)

	require.NoError(t, em.Emit(types.StartEvent{}))
	err = em.Emit(types.JobsEvent{Platform: "a", Jobs: []types.JobPosting{{URL: "https://x.example/1", Title: "Go"}}})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Error(), "connection reset by peer")
	assert.Equal(t, 1, cancels)

	again := em.Emit(types.CompleteEvent{TotalJobs: 1})
	assert.Same(t, te, again, "later calls return the same transport error")
	assert.Equal(t, 1, cancels)
	assert.False(t, em.Terminated())
}

// plainWriter is a ResponseWriter without Flush.
type plainWriter struct{ http.ResponseWriter }

func TestNewEmitter_RequiresFlusher(t *testing.T) {
	_, err := NewEmitter(plainWriter{httptest.NewRecorder()}, nil)
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

func TestEmitter_ConcurrentEmitsKeepFramesIntact(t *testing.T) {
	rec := httptest.NewRecorder()
	em, err := NewEmitter(rec, nil)
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, em.Emit(types.ProgressEvent{Platform: "p", Message: "tick"}))
		}()
	}
	wg.Wait()

	frames := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n\n"), "\n\n")
	require.Len(t, frames, n)
	for _, f := range frames {
		assert.Equal(t, "event: progress\ndata: {\"platform\":\"p\",\"message\":\"tick\"}", f)
	}
}
