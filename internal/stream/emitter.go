// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stream carries search run events over Server-Sent Events: Emitter
// writes them on the server, Client reads them back.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/pdiddy/jobstream/pkg/types"
)

// WriteFrame writes one SSE frame: the event name line, a single data line
// holding the JSON payload, and a blank line.
func WriteFrame(w io.Writer, ev types.Event) error {
	frame, err := encodeFrame(ev)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

func encodeFrame(ev types.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", ev.Name(), err)
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", ev.Name(), data), nil
}

// Emitter writes the events of one run to an HTTP response. Events are
// written in call order, at most one terminal event is ever written, and
// the first failed write cancels the run.
type Emitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	onFail  func()

	mu         sync.Mutex
	started    bool
	terminated bool
	failed     *TransportError
}

// NewEmitter wraps w. onFail is called once, on the first write failure;
// it is usually the run's context.CancelFunc.
func NewEmitter(w http.ResponseWriter, onFail func()) (*Emitter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	if onFail == nil {
		onFail = func() {}
	}
	return &Emitter{w: w, flusher: f, onFail: onFail}, nil
}

// Emit writes ev and flushes it to the client. After a terminal event it
// returns ErrStreamClosed; after a write failure it returns the same
// *TransportError every time.
func (e *Emitter) Emit(ev types.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failed != nil {
		return e.failed
	}
	if e.terminated {
		return ErrStreamClosed
	}
	frame, err := encodeFrame(ev)
	if err != nil {
		return err
	}
	if !e.started {
		e.start()
	}
	if _, err := e.w.Write(frame); err != nil {
		e.failed = &TransportError{Err: err}
		e.onFail()
		return e.failed
	}
	e.flusher.Flush()

	if ev.Name().IsTerminal() {
		e.terminated = true
	}
	return nil
}

// Terminated reports whether a terminal event has been written.
func (e *Emitter) Terminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminated
}

func (e *Emitter) start() {
	h := e.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	e.w.WriteHeader(http.StatusOK)
	e.started = true
}
