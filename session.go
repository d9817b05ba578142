package mjpegcapture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/visiona/mjpeg-capture/internal/scan"
	"github.com/visiona/mjpeg-capture/internal/transport"
	"github.com/visiona/mjpeg-capture/internal/watchdog"
)

// rateWindow caps how many recent frame timestamps RateStats retains.
const rateWindow = 120

// stopWait bounds how long Stop waits for the session goroutine to drain.
const stopWait = 3 * time.Second

// Session captures frames from one MJPEG stream and implements Stream.
//
// Lifecycle is Connecting -> Streaming -> Terminated, driven by a single
// goroutine that serializes chunk arrival, the frame watchdog and
// cancellation. Terminated is absorbing: once reached, no timer fires and
// no callback is invoked, even if late bytes arrive. A Session is
// single-use; create a new one to reconnect (or see RunWithReconnect).
type Session struct {
	cfg     Config
	client  *http.Client
	traceID string

	// Lifecycle
	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup

	terminated atomic.Bool
	streaming  atomic.Bool

	// Statistics (atomic for thread-safety)
	produced    uint64
	delivered   uint64
	suppressed  uint64
	bytesRead   uint64
	startedNS   atomic.Int64
	lastFrameNS atomic.Int64

	// Recent delivery timestamps for RateStats
	rateMu     sync.Mutex
	frameTimes []time.Time

	snapshot frameCache
}

var _ Stream = (*Session)(nil)

// New creates a session with fail-fast validation.
//
// URL and OnFrame are required; zero timeouts take the package defaults.
// The session holds no connection until Start.
func New(cfg Config) (*Session, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mjpeg-capture: stream URL is required")
	}
	if cfg.OnFrame == nil {
		return nil, fmt.Errorf("mjpeg-capture: OnFrame callback is required")
	}
	if cfg.ConnectTimeout < 0 || cfg.FrameTimeout < 0 || cfg.SnapshotMaxAge < 0 {
		return nil, fmt.Errorf("mjpeg-capture: timeouts must not be negative")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.FrameTimeout == 0 {
		cfg.FrameTimeout = DefaultFrameTimeout
	}
	if cfg.SnapshotMaxAge == 0 {
		cfg.SnapshotMaxAge = DefaultSnapshotMaxAge
	}

	client := cfg.Client
	if client == nil {
		// No global timeout: the response body is a long-lived stream.
		client = &http.Client{}
	}

	s := &Session{
		cfg:     cfg,
		client:  client,
		traceID: uuid.New().String(),
	}

	slog.Debug("mjpeg-capture: session created",
		"url", cfg.URL,
		"mode", cfg.Mode.String(),
		"connect_timeout", cfg.ConnectTimeout,
		"frame_timeout", cfg.FrameTimeout,
		"source", cfg.Source,
		"trace_id", s.traceID,
	)
	return s, nil
}

// Start launches the session goroutine and returns immediately. The
// connect phase, streaming and all callbacks happen on that goroutine.
// ctx cancellation is equivalent to Stop without the bounded wait.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.terminated.Load() {
		return fmt.Errorf("mjpeg-capture: session already terminated")
	}
	if s.cancel != nil {
		return fmt.Errorf("mjpeg-capture: session already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	slog.Info("mjpeg-capture: starting session",
		"url", s.cfg.URL,
		"mode", s.cfg.Mode.String(),
		"source", s.cfg.Source,
		"trace_id", s.traceID,
	)

	s.wg.Add(1)
	go s.run(runCtx)
	return nil
}

// Stop terminates the session: it suppresses any callback not yet issued,
// cancels the connection and the frame watchdog, and waits up to 3 seconds
// for the session goroutine to drain. Idempotent - only the first call has
// effect, and stopping a session that never started is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.terminated.Store(true)
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		slog.Debug("mjpeg-capture: session not started, nothing to stop", "trace_id", s.traceID)
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopWait):
		slog.Warn("mjpeg-capture: stop timeout exceeded, session goroutine still draining",
			"trace_id", s.traceID,
		)
	}

	slog.Info("mjpeg-capture: session stopped",
		"frames_delivered", atomic.LoadUint64(&s.delivered),
		"frames_suppressed", atomic.LoadUint64(&s.suppressed),
		"bytes_read", atomic.LoadUint64(&s.bytesRead),
		"source", s.cfg.Source,
		"trace_id", s.traceID,
	)
	return nil
}

// run is the session goroutine: connect, stream, tear down. Every exit
// path releases the connection and marks the session terminated.
func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.terminated.Store(true)
	defer s.streaming.Store(false)

	conn, err := transport.Dial(ctx, s.client, s.cfg.URL, s.cfg.Header, s.cfg.ConnectTimeout, &s.bytesRead)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled while connecting: silence, not an error.
			return
		}
		s.deliverErr(&StreamError{Kind: KindConnect, Err: err})
		return
	}
	defer conn.Close()

	if st := conn.Status(); st < 200 || st >= 300 {
		s.deliverErr(&StreamError{
			Kind:   KindConnect,
			Status: st,
			Err:    fmt.Errorf("unexpected status %d", st),
		})
		return
	}

	s.startedNS.Store(time.Now().UnixNano())
	s.streaming.Store(true)
	slog.Info("mjpeg-capture: streaming",
		"url", s.cfg.URL,
		"status", conn.Status(),
		"source", s.cfg.Source,
		"trace_id", s.traceID,
	)

	scanner := scan.New()
	dog := watchdog.New(s.cfg.FrameTimeout)
	defer dog.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-dog.Expired():
			s.deliverErr(&StreamError{Kind: KindFrameTimeout})
			return

		case chunk, ok := <-conn.Chunks():
			if !ok {
				s.streamEnded(ctx, conn.Err())
				return
			}
			for _, raw := range scanner.Append(chunk) {
				if s.produce(raw, dog) {
					return
				}
			}
		}
	}
}

// produce handles one extracted frame: renew the watchdog, apply the
// transform and the Wanted gate, deliver. Returns true when the session is
// done (snapshot mode satisfied, or termination observed).
//
// The watchdog is renewed for every produced frame, delivered or not: a
// suppressed frame still proves the connection is alive.
func (s *Session) produce(raw []byte, dog *watchdog.Watchdog) bool {
	seq := atomic.AddUint64(&s.produced, 1)
	now := time.Now()
	s.lastFrameNS.Store(now.UnixNano())
	dog.Renew()

	out := raw
	if s.cfg.Transform != nil {
		out = s.cfg.Transform(raw)
	}
	if len(out) == 0 {
		// Frame suppressed by transform: no delivery, no error.
		atomic.AddUint64(&s.suppressed, 1)
		slog.Debug("mjpeg-capture: frame suppressed by transform",
			"seq", seq, "trace_id", s.traceID)
		return false
	}

	if !s.wanted() {
		atomic.AddUint64(&s.suppressed, 1)
		slog.Debug("mjpeg-capture: frame suppressed, consumer disengaged",
			"seq", seq, "trace_id", s.traceID)
		return false
	}
	if s.terminated.Load() {
		return true
	}

	frame := Frame{
		Seq:       seq,
		Timestamp: now,
		Data:      out,
		Source:    s.cfg.Source,
		TraceID:   s.traceID,
	}
	s.snapshot.store(out, now)
	s.recordDelivery(now)
	atomic.AddUint64(&s.delivered, 1)

	slog.Debug("mjpeg-capture: frame delivered",
		"seq", seq, "size_bytes", len(out), "trace_id", s.traceID)
	s.cfg.OnFrame(frame)

	if s.cfg.Mode == ModeSnapshot {
		// Expected completion: one frame, no error.
		slog.Info("mjpeg-capture: snapshot complete",
			"size_bytes", len(out),
			"source", s.cfg.Source,
			"trace_id", s.traceID,
		)
		return true
	}
	return false
}

// streamEnded maps the close of the chunk channel to an outcome: silent
// when cancelled locally or when the failure is the benign
// closed-before-complete class, an error otherwise.
func (s *Session) streamEnded(ctx context.Context, err error) {
	switch {
	case ctx.Err() != nil:
		return
	case err == nil:
		// Live MJPEG streams do not end on their own while still wanted.
		s.deliverErr(&StreamError{
			Kind: KindStreamClosed,
			Err:  errors.New("stream closed unexpectedly"),
		})
	case transport.IsBenignClose(err):
		slog.Info("mjpeg-capture: connection closed early, swallowing",
			"error", err,
			"source", s.cfg.Source,
			"trace_id", s.traceID,
		)
	default:
		s.deliverErr(&StreamError{Kind: KindTransport, Err: err})
	}
}

// deliverErr reports the terminal error unless the session has been
// terminated or the consumer has disengaged. At most one error is ever
// delivered per session.
func (s *Session) deliverErr(se *StreamError) {
	se.Source = s.cfg.Source
	se.TraceID = s.traceID

	if s.terminated.Load() || !s.wanted() {
		slog.Debug("mjpeg-capture: terminal error suppressed",
			"kind", se.Kind.String(), "error", se.Err, "trace_id", s.traceID)
		return
	}

	slog.Error("mjpeg-capture: session failed",
		"kind", se.Kind.String(),
		"status", se.Status,
		"error", se.Err,
		"frames_delivered", atomic.LoadUint64(&s.delivered),
		"source", s.cfg.Source,
		"trace_id", s.traceID,
	)
	if s.cfg.OnError != nil {
		s.cfg.OnError(se)
	}
}

func (s *Session) wanted() bool {
	return s.cfg.Wanted == nil || s.cfg.Wanted()
}

func (s *Session) recordDelivery(at time.Time) {
	s.rateMu.Lock()
	s.frameTimes = append(s.frameTimes, at)
	if len(s.frameTimes) > rateWindow {
		s.frameTimes = s.frameTimes[len(s.frameTimes)-rateWindow:]
	}
	s.rateMu.Unlock()
}

// Snapshot returns the most recently delivered frame, or ErrNoFrame /
// ErrStaleFrame when nothing servable is cached. Thread-safe.
func (s *Session) Snapshot() ([]byte, error) {
	return s.snapshot.latest(s.cfg.SnapshotMaxAge)
}

// Stats returns current session statistics. Thread-safe; counters are read
// atomically.
func (s *Session) Stats() SessionStats {
	delivered := atomic.LoadUint64(&s.delivered)

	var fpsReal float64
	if startedNS := s.startedNS.Load(); startedNS > 0 {
		uptime := time.Since(time.Unix(0, startedNS)).Seconds()
		if uptime > 0 {
			fpsReal = float64(delivered) / uptime
		}
	}

	var latencyMS int64
	if lastNS := s.lastFrameNS.Load(); lastNS > 0 {
		latencyMS = time.Since(time.Unix(0, lastNS)).Milliseconds()
	}

	return SessionStats{
		FrameCount:       delivered,
		FramesSuppressed: atomic.LoadUint64(&s.suppressed),
		BytesRead:        atomic.LoadUint64(&s.bytesRead),
		LatencyMS:        latencyMS,
		FPSReal:          fpsReal,
		IsStreaming:      s.streaming.Load() && !s.terminated.Load(),
		Source:           s.cfg.Source,
		TraceID:          s.traceID,
	}
}
