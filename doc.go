// Package mjpegcapture extracts JPEG frames from MJPEG-over-HTTP video
// feeds.
//
// A Session opens a long-lived GET request against a camera URL, scans the
// raw byte stream for JPEG start/end markers (no MIME parsing, tolerant of
// any transport chunking), and delivers each complete frame through a
// callback as soon as its end marker is observed. A rolling per-frame
// watchdog detects stalled connections, and every termination path -
// completion, error, timeout, cancellation - releases the connection and
// timers exactly once.
//
// # Quick Start
//
// Live capture:
//
//	session, err := mjpegcapture.New(mjpegcapture.Config{
//	    URL:    "http://192.168.1.100/video.mjpg",
//	    Source: "cam-1",
//	    OnFrame: func(f mjpegcapture.Frame) {
//	        // f.Data is one complete JPEG image
//	    },
//	    OnError: func(err *mjpegcapture.StreamError) {
//	        log.Printf("stream failed: %v", err)
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Stop()
//
//	if err := session.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// A single still image instead of a live feed:
//
//	cfg.Mode = mjpegcapture.ModeSnapshot // terminates after one frame
//
// # Delivery policy
//
// Config carries the per-session policy inputs:
//
//   - Mode: live streaming or single-shot snapshot
//   - ConnectTimeout / FrameTimeout: connect window (default 5s) and the
//     rolling gap allowed between frames (default 3s)
//   - Transform: optional per-frame byte rewrite; returning nothing
//     suppresses the frame silently
//   - Wanted: liveness predicate consulted before every callback, so a
//     disengaged consumer (an off-screen viewer, say) stops receiving
//     effects without tearing the session down
//
// # Errors
//
// Terminal failures arrive as *StreamError carrying an ErrorKind (connect,
// frame_timeout, transport, stream_closed), the HTTP status where
// relevant, and the session's trace ID. Clean snapshot completion is not
// an error. A connection dropped before the response completed is treated
// as a benign disconnect and swallowed.
//
// # Telemetry
//
// Stats() exposes atomic counters (frames, bytes, latency, measured FPS);
// RateStats() summarizes recent delivery rate and jitter with a stability
// verdict; Snapshot() serves the most recent frame within a staleness
// window. RunWithReconnect restarts failed live sessions with exponential
// backoff for unattended capture.
package mjpegcapture
