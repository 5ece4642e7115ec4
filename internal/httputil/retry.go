// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP helpers shared by platform searchers.
package httputil

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const (
	defaultMaxRetries = 3
	maxErrorBody      = 512
)

// StatusError reports a non-200 response from a platform API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests). The wait honours a Retry-After header in seconds and otherwise
// doubles from RetryBaseDelay each attempt.
//
// When maxRetries is 0 the default (3) is used. If the context is cancelled
// or its deadline would pass during a wait, DoWithRetry returns ctx.Err()
// without sleeping the remainder. After exhausting retries the last 429
// response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		wait := retryAfter(resp.Header.Get("Retry-After"))
		if wait <= 0 {
			wait = RetryBaseDelay << attempt
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return nil, context.DeadlineExceeded
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// GetJSON fetches url and decodes the JSON body into v. Non-200 responses
// become a *StatusError carrying the start of the body.
func GetJSON(ctx context.Context, client *http.Client, url, userAgent string, v any) error {
	return get(ctx, client, url, userAgent, "application/json", func(r io.Reader) error {
		return json.NewDecoder(r).Decode(v)
	})
}

// GetXML fetches url and decodes the XML body into v.
func GetXML(ctx context.Context, client *http.Client, url, userAgent string, v any) error {
	return get(ctx, client, url, userAgent, "application/rss+xml, application/xml", func(r io.Reader) error {
		return xml.NewDecoder(r).Decode(v)
	})
}

func get(ctx context.Context, client *http.Client, url, userAgent, accept string, decode func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := decode(resp.Body); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
