package mjpegcapture

import (
	"errors"
	"fmt"
)

// ErrorKind classifies terminal session errors so consumers can react
// per class without parsing messages.
type ErrorKind int

const (
	// KindConnect indicates the connect phase failed: non-2xx status,
	// connect timeout, or a request-level failure. No frame was delivered.
	KindConnect ErrorKind = iota
	// KindFrameTimeout indicates no complete frame was produced within the
	// configured window. The connection is presumed stalled.
	KindFrameTimeout
	// KindTransport indicates the chunk source failed mid-stream.
	KindTransport
	// KindStreamClosed indicates the stream ended while more frames were
	// expected. Clean snapshot completion is not reported through this kind.
	KindStreamClosed
)

// String returns a human-readable string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindFrameTimeout:
		return "frame_timeout"
	case KindTransport:
		return "transport"
	case KindStreamClosed:
		return "stream_closed"
	default:
		return "unknown"
	}
}

// StreamError is the terminal error surfaced through Config.OnError.
//
// It always carries the originating context (session trace ID, source
// label) alongside the description, so multi-session consumers can
// attribute and classify failures.
type StreamError struct {
	// Kind is the error class
	Kind ErrorKind
	// Status is the HTTP status code for KindConnect failures, 0 otherwise
	Status int
	// Source identifies the stream (Config.Source)
	Source string
	// TraceID is the session trace identifier
	TraceID string
	// Err is the underlying cause, if any
	Err error
}

func (e *StreamError) Error() string {
	msg := fmt.Sprintf("mjpeg-capture: %s error", e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is/errors.As chains.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *StreamError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *StreamError
	return errors.As(err, &se) && se.Kind == kind
}
