// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"errors"
	"fmt"
)

// ErrStreamClosed is returned by Emit after the terminal event was written.
var ErrStreamClosed = errors.New("stream already terminated")

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported by response writer")

// TransportError means the server could not write to the client. The run is
// cancelled; nothing is reported to the client since the channel is gone.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("writing event stream: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConnectionError means the client lost its stream before a terminal event
// arrived, or could not open it at all.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("event stream connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
