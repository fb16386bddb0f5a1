// Package transport provides the bus-level collaborators used to reach lab
// instruments. The dispatch layer only ever issues the primitives defined by
// the Transport interface; framing, addressing and electrical concerns stay
// behind it.
package transport

import (
	"fmt"
	"time"
)

// Transport is a live connection to a single instrument. Implementations are
// request/response and half duplex; callers must serialize access.
type Transport interface {
	// Write sends a terminated command string with no reply expected.
	Write(command string) error
	// Query sends a command and reads one terminated reply line.
	Query(command string, timeout time.Duration) (string, error)
	// ReadBinaryBlock reads a raw byte payload, used for waveform curves.
	ReadBinaryBlock(timeout time.Duration) ([]byte, error)
	// Close releases the underlying bus handle. Safe to call once.
	Close() error
}

// ConnectionError reports that a resource could not be opened.
type ConnectionError struct {
	Resource string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to open resource %q: %v", e.Resource, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports that no reply arrived within the configured bound.
type TimeoutError struct {
	Command string
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("timeout waiting for reply to %q", e.Command)
	}
	return fmt.Sprintf("timeout waiting for reply to %q: %v", e.Command, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// CommunicationError reports a transport level failure. The dispatch layer
// also uses it as the terminal error once its retry budget is exhausted.
type CommunicationError struct {
	Command string
	Err     error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("communication failure on %q: %v", e.Command, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }
