// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
)

// EventName is the wire name of a stream event.
type EventName string

const (
	EventStart            EventName = "start"
	EventProgress         EventName = "progress"
	EventJobs             EventName = "jobs"
	EventPlatformComplete EventName = "platform-complete"
	EventComplete         EventName = "complete"
	EventError            EventName = "error"
)

// Event is one message of a search run's stream. The set of implementations
// is closed; consumers switch on the concrete type.
type Event interface {
	Name() EventName
	isEvent()
}

// StartEvent opens a run. It is always the first event.
type StartEvent struct {
	RunID     string   `json:"runId,omitempty"`
	Keywords  string   `json:"keywords,omitempty"`
	Location  string   `json:"location,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
}

// ProgressEvent reports interim status for one platform.
type ProgressEvent struct {
	Platform string `json:"platform"`
	Message  string `json:"message"`
}

// JobsEvent carries one batch of newly accepted postings from one platform.
type JobsEvent struct {
	Platform string       `json:"platform"`
	Jobs     []JobPosting `json:"jobs"`
}

// PlatformCompleteEvent is sent exactly once per platform. Error is set when
// the platform failed or timed out; JobCount is the number of postings from
// that platform accepted by the deduplicator.
type PlatformCompleteEvent struct {
	Platform string `json:"platform"`
	JobCount int    `json:"jobCount"`
	Error    string `json:"error,omitempty"`
}

// CompleteEvent ends a successful run.
type CompleteEvent struct {
	TotalJobs int `json:"totalJobs"`
}

// ErrorEvent ends a run that failed before or outside any single platform.
type ErrorEvent struct {
	Message string `json:"error"`
}

func (StartEvent) Name() EventName            { return EventStart }
func (ProgressEvent) Name() EventName         { return EventProgress }
func (JobsEvent) Name() EventName             { return EventJobs }
func (PlatformCompleteEvent) Name() EventName { return EventPlatformComplete }
func (CompleteEvent) Name() EventName         { return EventComplete }
func (ErrorEvent) Name() EventName            { return EventError }

func (StartEvent) isEvent()            {}
func (ProgressEvent) isEvent()         {}
func (JobsEvent) isEvent()             {}
func (PlatformCompleteEvent) isEvent() {}
func (CompleteEvent) isEvent()         {}
func (ErrorEvent) isEvent()            {}

// IsTerminal reports whether name ends a run.
func (n EventName) IsTerminal() bool {
	return n == EventComplete || n == EventError
}

// DecodeEvent builds the typed event for a wire name and JSON body. An empty
// body is accepted for start, whose payload is optional.
func DecodeEvent(name EventName, data []byte) (Event, error) {
	switch name {
	case EventStart:
		if len(data) == 0 {
			return StartEvent{}, nil
		}
		return decode[StartEvent](name, data)
	case EventProgress:
		return decode[ProgressEvent](name, data)
	case EventJobs:
		return decode[JobsEvent](name, data)
	case EventPlatformComplete:
		return decode[PlatformCompleteEvent](name, data)
	case EventComplete:
		return decode[CompleteEvent](name, data)
	case EventError:
		return decode[ErrorEvent](name, data)
	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
}

func decode[T Event](name EventName, data []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decoding %s event: %w", name, err)
	}
	return e, nil
}
