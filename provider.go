package mjpegcapture

import "context"

// Stream defines the contract for one MJPEG capture session.
//
// Implementations must guarantee:
//   - Start() returns immediately (non-blocking); connect, streaming and
//     all callbacks happen on the session's own goroutine
//   - Stop() is idempotent and suppresses callbacks not yet issued
//   - Stats() and Snapshot() are thread-safe (callable from any goroutine)
//   - teardown of the connection and timers happens exactly once, on every
//     termination path: completion, error, timeout, or cancellation
type Stream interface {
	// Start begins the session. Frames arrive through Config.OnFrame, a
	// terminal failure through Config.OnError; a clean single-shot
	// completion reports neither. Cancelling ctx terminates the session
	// silently.
	//
	// Returns an error if the session was already started or terminated.
	Start(ctx context.Context) error

	// Stop terminates the session and waits briefly for it to drain.
	// After Stop returns, no further frame or error callback fires.
	Stop() error

	// Stats returns a snapshot of session counters.
	Stats() SessionStats

	// Snapshot returns the most recently delivered frame, if fresh enough.
	Snapshot() ([]byte, error)
}
