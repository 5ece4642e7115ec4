// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/jobstream/internal/search"
	"github.com/pdiddy/jobstream/pkg/types"
)

// sseServer serves body verbatim as an event stream.
func sseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func collect(events *[]types.Event) Handler {
	return func(ev types.Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func TestConsume_Complete(t *testing.T) {
	body := "event: start\ndata: {\"runId\":\"r1\"}\n\n" +
		": keep-alive comment\n\n" +
		"event: jobs\ndata: {\"platform\":\"a\",\"jobs\":[{\"url\":\"https://x.example/1\",\"title\":\"Go\"}]}\n\n" +
		"event: platform-complete\ndata: {\"platform\":\"a\",\"jobCount\":1}\n\n" +
		"event: complete\ndata: {\"totalJobs\":1}\n\n" +
		"event: progress\ndata: {\"platform\":\"late\"}\n\n"
	ts := sseServer(t, body)

	var events []types.Event
	c := &Client{BaseURL: ts.URL, HTTP: ts.Client()}
	err := c.Consume(context.Background(), search.Query{Keywords: "go"}, collect(&events))
	require.NoError(t, err)

	require.Len(t, events, 4, "nothing is dispatched after complete")
	assert.Equal(t, types.StartEvent{RunID: "r1"}, events[0])
	jobs := events[1].(types.JobsEvent)
	assert.Equal(t, "a", jobs.Platform)
	require.Len(t, jobs.Jobs, 1)
	assert.Equal(t, "Go", jobs.Jobs[0].Title)
	assert.Equal(t, types.PlatformCompleteEvent{Platform: "a", JobCount: 1}, events[2])
	assert.Equal(t, types.CompleteEvent{TotalJobs: 1}, events[3])
}

func TestConsume_ErrorEvent(t *testing.T) {
	ts := sseServer(t, "event: start\ndata: {}\n\nevent: error\ndata: {\"error\":\"query is empty\"}\n\n")

	var events []types.Event
	c := &Client{BaseURL: ts.URL, HTTP: ts.Client()}
	err := c.Consume(context.Background(), search.Query{}, collect(&events))

	var re *search.RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "query is empty", re.Message)
	assert.Len(t, events, 2, "the error event is dispatched before Consume returns")
}

func TestConsume_EOFBeforeTerminal(t *testing.T) {
	ts := sseServer(t, "event: start\ndata: {}\n\nevent: progress\ndata: {\"platform\":\"a\",\"message\":\"m\"}\n\n")

	var events []types.Event
	c := &Client{BaseURL: ts.URL, HTTP: ts.Client()}
	err := c.Consume(context.Background(), search.Query{Keywords: "go"}, collect(&events))

	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Len(t, events, 2)
}

func TestConsume_MalformedNonTerminalDropped(t *testing.T) {
	body := "event: start\ndata: {}\n\n" +
		"event: jobs\ndata: {not json\n\n" +
		"event: mystery\ndata: {}\n\n" +
		"data: {\"orphan\":true}\n\n" +
		"event: complete\ndata: {\"totalJobs\":0}\n\n"
	ts := sseServer(t, body)

	var events []types.Event
	c := &Client{BaseURL: ts.URL, HTTP: ts.Client()}
	require.NoError(t, c.Consume(context.Background(), search.Query{Keywords: "go"}, collect(&events)))
	require.Len(t, events, 2)
	assert.Equal(t, types.EventStart, events[0].Name())
	assert.Equal(t, types.EventComplete, events[1].Name())
}

func TestConsume_MalformedTerminalRejects(t *testing.T) {
	ts := sseServer(t, "event: start\ndata: {}\n\nevent: complete\ndata: {\"totalJobs\":\"many\"}\n\n")

	c := &Client{BaseURL: ts.URL, HTTP: ts.Client()}
	err := c.Consume(context.Background(), search.Query{Keywords: "go"}, func(types.Event) error { return nil })
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "malformed terminal event")
}

func TestConsume_MultiLineData(t *testing.T) {
	ts := sseServer(t, "event: start\ndata: {\"runId\":\ndata: \"r2\"}\n\nevent: complete\ndata:{\"totalJobs\":0}\n\n")

	var events []types.Event
	c := &Client{BaseURL: ts.URL, HTTP: ts.Client()}
	require.NoError(t, c.Consume(context.Background(), search.Query{Keywords: "go"}, collect(&events)))
	assert.Equal(t, types.StartEvent{RunID: "r2"}, events[0])
}

func TestConsume_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, HTTP: ts.Client()}
	err := c.Consume(context.Background(), search.Query{Keywords: "go"}, func(types.Event) error { return nil })
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestConsume_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	c := &Client{BaseURL: addr}
	err := c.Consume(context.Background(), search.Query{Keywords: "go"}, func(types.Event) error { return nil })
	var ce *ConnectionError
	assert.ErrorAs(t, err, &ce)
}

func TestConsume_HandlerErrorStops(t *testing.T) {
	ts := sseServer(t, "event: start\ndata: {}\n\nevent: complete\ndata: {\"totalJobs\":0}\n\n")

	stop := errors.New("stop")
	calls := 0
	c := &Client{BaseURL: ts.URL, HTTP: ts.Client()}
	err := c.Consume(context.Background(), search.Query{Keywords: "go"}, func(types.Event) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestConsume_ContextCancelClosesConnection(t *testing.T) {
	closed := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: start\ndata: {}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(closed)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{BaseURL: ts.URL, HTTP: ts.Client()}
	err := c.Consume(ctx, search.Query{Keywords: "go"}, func(ev types.Event) error {
		if ev.Name() == types.EventStart {
			cancel()
		}
		return nil
	})
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the connection close")
	}
}

func TestConsume_RequestParameters(t *testing.T) {
	var got url.Values
	var auth, accept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, StreamPath, r.URL.Path)
		got = r.URL.Query()
		auth = r.Header.Get("Authorization")
		accept = r.Header.Get("Accept")
		fmt.Fprint(w, "event: start\ndata: {}\n\nevent: complete\ndata: {\"totalJobs\":0}\n\n")
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL + "/", HTTP: ts.Client(), Token: "tok"}
	q := search.Query{
		Keywords:  "backend engineer",
		Location:  "Berlin",
		Remote:    true,
		Platforms: []string{"adzuna", "remotive"},
		Exclude:   []string{"crypto"},
		Page:      2,
		PerPage:   10,
	}
	require.NoError(t, c.Consume(context.Background(), q, func(types.Event) error { return nil }))

	assert.Equal(t, "backend engineer", got.Get("keywords"))
	assert.Equal(t, "Berlin", got.Get("location"))
	assert.Equal(t, "true", got.Get("remote"))
	assert.Equal(t, "adzuna,remotive", got.Get("platforms"))
	assert.Equal(t, "crypto", got.Get("exclude"))
	assert.Equal(t, "2", got.Get("page"))
	assert.Equal(t, "10", got.Get("per_page"))
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "text/event-stream", accept)
}

func TestEmitterToClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		em, err := NewEmitter(w, nil)
		require.NoError(t, err)
		for _, ev := range []types.Event{
			types.StartEvent{RunID: "r", Platforms: []string{"a"}},
			types.JobsEvent{Platform: "a", Jobs: []types.JobPosting{{URL: "https://x.example/1", Title: strings.Repeat("x", 100_000)}}},
			types.PlatformCompleteEvent{Platform: "a", JobCount: 1},
			types.CompleteEvent{TotalJobs: 1},
		} {
			assert.NoError(t, em.Emit(ev))
		}
	}))
	defer ts.Close()

	var names []types.EventName
	c := &Client{BaseURL: ts.URL, HTTP: ts.Client()}
	err := c.Consume(context.Background(), search.Query{Keywords: "go"}, func(ev types.Event) error {
		names = append(names, ev.Name())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []types.EventName{types.EventStart, types.EventJobs, types.EventPlatformComplete, types.EventComplete}, names)
}
