package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
)

// ErrConnectTimeout is returned by Dial when no response headers arrive
// within the connect window.
var ErrConnectTimeout = errors.New("transport: connect timeout")

// Classify maps a body read failure to what the session should see.
//
// A server-side end of stream (io.EOF) and a locally cancelled read both
// come back as nil: neither is a transport fault. Everything else is
// returned as-is for the session to surface.
func Classify(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	// Reads aborted by our own teardown surface as context errors or as
	// "use of closed connection" depending on timing.
	if ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// IsBenignClose reports whether err is the "connection dropped before the
// response was complete" class, which callers treat as a silent
// disconnect rather than a surfaced error.
//
// Structured checks come first; the keyword fallback only covers the
// cases net/http still reports as opaque wrapped strings.
func IsBenignClose(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return containsCloseKeywords(err.Error())
}

// containsCloseKeywords checks the error message for connection-close wording
func containsCloseKeywords(msg string) bool {
	keywords := []string{
		"server closed idle connection",
		"connection closed before",
		"client connection lost",
	}

	msg = strings.ToLower(msg)
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
