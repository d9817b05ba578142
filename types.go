package mjpegcapture

import (
	"net/http"
	"time"
)

// Default timeouts applied by New when the corresponding Config field is zero.
const (
	// DefaultConnectTimeout bounds the connect phase (request issued until
	// response headers received).
	DefaultConnectTimeout = 5 * time.Second
	// DefaultFrameTimeout is the maximum gap allowed between produced frames
	// before the connection is presumed stalled.
	DefaultFrameTimeout = 3 * time.Second
	// DefaultSnapshotMaxAge is how long the last delivered frame stays
	// servable through Snapshot before it is considered stale.
	DefaultSnapshotMaxAge = 5 * time.Second
)

// Mode selects the session delivery policy.
type Mode int

const (
	// ModeLive keeps the session streaming until an error, a timeout or Stop.
	ModeLive Mode = iota
	// ModeSnapshot terminates cleanly after the first delivered frame.
	ModeSnapshot
)

// String returns a human-readable string representation of the mode
func (m Mode) String() string {
	switch m {
	case ModeSnapshot:
		return "snapshot"
	default:
		return "live"
	}
}

// Frame represents a single complete JPEG image extracted from the stream.
//
// Data is bounded by the 0xFFD8 start marker and the 0xFFD9 end marker and
// MUST NOT be modified after delivery (shared by reference with the
// snapshot cache).
type Frame struct {
	// Seq is the monotonic sequence number of produced frames in this session
	Seq uint64
	// Timestamp is when the terminating marker was observed
	Timestamp time.Time
	// Data contains the JPEG bytes, transform already applied
	Data []byte
	// Source identifies the stream (Config.Source)
	Source string
	// TraceID ties the frame to its session for distributed tracing
	TraceID string
}

// TransformFunc optionally rewrites frame bytes before delivery.
// Returning nil or an empty slice suppresses the frame silently.
type TransformFunc func([]byte) []byte

// Config contains configuration for one capture session
type Config struct {
	// URL is the MJPEG stream URL (required)
	URL string
	// Header is merged into the GET request
	Header http.Header
	// Mode selects live streaming or single-shot delivery
	Mode Mode
	// ConnectTimeout bounds the connect phase (default 5s)
	ConnectTimeout time.Duration
	// FrameTimeout is the rolling per-frame watchdog window (default 3s)
	FrameTimeout time.Duration
	// SnapshotMaxAge is the staleness window for Snapshot (default 5s)
	SnapshotMaxAge time.Duration
	// Transform is applied to every frame before delivery (nil = identity)
	Transform TransformFunc
	// Wanted is consulted before every consumer-visible effect. A false
	// return suppresses the effect; the session itself keeps running.
	// nil means always wanted.
	Wanted func() bool
	// OnFrame receives each delivered frame (required)
	OnFrame func(Frame)
	// OnError receives the terminal error, if any
	OnError func(*StreamError)
	// Source identifies the stream in logs and stats (e.g. "cam-1")
	Source string
	// Client overrides the HTTP client used to connect. nil selects a
	// client without a global request timeout, which a long-lived
	// multipart response requires.
	Client *http.Client
}

// SessionStats contains current session statistics
type SessionStats struct {
	// FrameCount is the total number of frames delivered
	FrameCount uint64
	// FramesSuppressed counts frames produced but not delivered
	// (transform yielded nothing, or Wanted was false)
	FramesSuppressed uint64
	// BytesRead is the total bytes consumed from the transport
	BytesRead uint64
	// LatencyMS is the time since the last produced frame in milliseconds
	LatencyMS int64
	// FPSReal is the measured delivery rate since stream start
	FPSReal float64
	// IsStreaming indicates the session is past connect and not terminated
	IsStreaming bool
	// Source identifies the stream (Config.Source)
	Source string
	// TraceID is the session trace identifier
	TraceID string
}
