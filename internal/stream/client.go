// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/jobstream/internal/search"
	"github.com/pdiddy/jobstream/pkg/types"
)

// StreamPath is the route serving the event stream.
const StreamPath = "/api/search/stream"

// maxFrameSize bounds one SSE line; a jobs batch with descriptions can be
// large.
const maxFrameSize = 8 << 20

// Handler receives each decoded event in arrival order. A non-nil error
// stops consumption and is returned by Consume.
type Handler func(types.Event) error

// Client opens event streams against a jobstream server.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	// Token is sent as a bearer token when set.
	Token string

	Logger *slog.Logger
}

// Consume runs one search and feeds its events to h. It returns nil after
// complete, a *search.RunError after an error event, and a *ConnectionError
// if the stream cannot be opened or ends before a terminal event. The
// response body is closed before Consume returns.
func (c *Client) Consume(ctx context.Context, q search.Query, h Handler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(q), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ConnectionError{Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	return c.read(resp.Body, h)
}

// read parses SSE frames from r until a terminal event or end of input.
func (c *Client) read(r io.Reader, h Handler) error {
	log := c.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	var name string
	var data bytes.Buffer
	for sc.Scan() {
		line := sc.Text()
		if line != "" {
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				name = value
			case "data":
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(value)
			}
			// Comments (empty field) and id/retry fields are ignored.
			continue
		}

		if name == "" && data.Len() == 0 {
			continue
		}
		evName := types.EventName(name)
		ev, err := types.DecodeEvent(evName, data.Bytes())
		name = ""
		data.Reset()
		if err != nil {
			if evName.IsTerminal() {
				return &ConnectionError{Err: fmt.Errorf("malformed terminal event: %w", err)}
			}
			log.Warn("dropping malformed event", "event", evName, "err", err)
			continue
		}

		if err := h(ev); err != nil {
			return err
		}
		switch e := ev.(type) {
		case types.CompleteEvent:
			return nil
		case types.ErrorEvent:
			return &search.RunError{Message: e.Message}
		}
	}
	if err := sc.Err(); err != nil {
		return &ConnectionError{Err: err}
	}
	return &ConnectionError{Err: io.ErrUnexpectedEOF}
}

func (c *Client) streamURL(q search.Query) string {
	v := url.Values{}
	if q.Keywords != "" {
		v.Set("keywords", q.Keywords)
	}
	if q.Location != "" {
		v.Set("location", q.Location)
	}
	if q.Remote {
		v.Set("remote", "true")
	}
	if len(q.Platforms) > 0 {
		v.Set("platforms", strings.Join(q.Platforms, ","))
	}
	if len(q.Exclude) > 0 {
		v.Set("exclude", strings.Join(q.Exclude, ","))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return strings.TrimRight(c.BaseURL, "/") + StreamPath + "?" + v.Encode()
}
