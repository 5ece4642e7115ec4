// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"fmt"
)

// Platform failure reasons reported in platform-complete events.
const (
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

// ErrQuotaExceeded is wrapped by the RunError of a run refused because the
// caller used up its search quota.
var ErrQuotaExceeded = errors.New("quota exceeded")

// PlatformError records that one platform failed or timed out. It never ends
// a run; the aggregator reports it inside the platform-complete event.
type PlatformError struct {
	Platform string
	Reason   string
	Err      error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: %s", e.Platform, e.Reason)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// RunError is a fault of the run itself (invalid query, no platforms,
// refused admission). It is surfaced to the client as the single error event.
type RunError struct {
	Message string
	Err     error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RunError) Unwrap() error { return e.Err }
