package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	mjpegcapture "github.com/visiona/mjpeg-capture"
)

// Version information
const version = "v0.1.0"

// headerList collects repeated -header "Name: value" flags.
type headerList struct {
	header http.Header
}

func (h *headerList) String() string { return "" }

func (h *headerList) Set(value string) error {
	name, val, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("header must be \"Name: value\", got %q", value)
	}
	if h.header == nil {
		h.header = http.Header{}
	}
	h.header.Add(strings.TrimSpace(name), strings.TrimSpace(val))
	return nil
}

func main() {
	streamURL := flag.String("url", "", "MJPEG stream URL (required)")
	snapshot := flag.Bool("snapshot", false, "Capture a single frame and exit")
	connectTimeout := flag.Duration("connect-timeout", mjpegcapture.DefaultConnectTimeout, "Connect phase timeout")
	frameTimeout := flag.Duration("frame-timeout", mjpegcapture.DefaultFrameTimeout, "Rolling per-frame timeout")
	source := flag.String("source", "capture", "Source stream identifier")
	outputDir := flag.String("output", "", "Directory to save captured frames as .jpg (optional)")
	maxFrames := flag.Uint64("max-frames", 0, "Maximum frames to capture (0 = unlimited)")
	statsInterval := flag.Duration("stats-interval", 10*time.Second, "Interval between stats reports")
	reconnect := flag.Bool("reconnect", false, "Restart failed sessions with exponential backoff")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	var headers headerList
	flag.Var(&headers, "header", "Extra request header \"Name: value\" (repeatable)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mjpeg-capture %s\n", version)
		os.Exit(0)
	}

	if *streamURL == "" {
		fmt.Fprintf(os.Stderr, "Error: --url flag is required\n\n")
		fmt.Fprintf(os.Stderr, "Usage examples:\n")
		fmt.Fprintf(os.Stderr, "  mjpeg-capture --url http://192.168.1.100/video.mjpg\n")
		fmt.Fprintf(os.Stderr, "  mjpeg-capture --url http://cam/stream --snapshot --output .\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	mode := mjpegcapture.ModeLive
	if *snapshot {
		mode = mjpegcapture.ModeSnapshot
	}

	fmt.Printf("mjpeg-capture %s\n", version)
	fmt.Printf("  URL:            %s\n", *streamURL)
	fmt.Printf("  Mode:           %s\n", mode)
	fmt.Printf("  Source:         %s\n", *source)
	if *outputDir != "" {
		fmt.Printf("  Output Dir:     %s\n", *outputDir)
	} else {
		fmt.Printf("  Output Dir:     (none - frames not saved)\n")
	}
	if *maxFrames > 0 {
		fmt.Printf("  Max Frames:     %d\n", *maxFrames)
	} else {
		fmt.Printf("  Max Frames:     unlimited\n")
	}
	fmt.Printf("\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &capture{
		cfg: mjpegcapture.Config{
			URL:            *streamURL,
			Header:         headers.header,
			Mode:           mode,
			ConnectTimeout: *connectTimeout,
			FrameTimeout:   *frameTimeout,
			Source:         *source,
		},
		outputDir:     *outputDir,
		maxFrames:     *maxFrames,
		statsInterval: *statsInterval,
	}

	var err error
	if *reconnect {
		err = mjpegcapture.RunWithReconnect(ctx, app.runSession, mjpegcapture.DefaultReconnectConfig())
	} else {
		_, err = app.runSession(ctx)
	}

	if err != nil && ctx.Err() == nil {
		slog.Error("capture failed", "error", err)
		os.Exit(1)
	}
	slog.Info("capture finished", "frames_total", app.total.Load())
}

type capture struct {
	cfg           mjpegcapture.Config
	outputDir     string
	maxFrames     uint64
	statsInterval time.Duration

	total atomic.Uint64
}

// runSession runs one session to termination and reports how it ended.
// Satisfies mjpegcapture.SessionFunc so -reconnect can supervise it.
func (c *capture) runSession(ctx context.Context) (uint64, error) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var delivered atomic.Uint64
	errCh := make(chan *mjpegcapture.StreamError, 1)
	doneCh := make(chan struct{}, 1)

	cfg := c.cfg
	cfg.OnFrame = func(f mjpegcapture.Frame) {
		n := c.total.Add(1)
		delivered.Add(1)
		slog.Info("frame received", "seq", f.Seq, "size_bytes", len(f.Data), "total", n)

		if c.outputDir != "" {
			name := filepath.Join(c.outputDir, fmt.Sprintf("frame_%06d.jpg", n))
			if err := os.WriteFile(name, f.Data, 0644); err != nil {
				slog.Error("failed to save frame", "file", name, "error", err)
			}
		}

		if cfg.Mode == mjpegcapture.ModeSnapshot || (c.maxFrames > 0 && n >= c.maxFrames) {
			select {
			case doneCh <- struct{}{}:
			default:
			}
		}
	}
	cfg.OnError = func(e *mjpegcapture.StreamError) {
		errCh <- e
	}

	session, err := mjpegcapture.New(cfg)
	if err != nil {
		return 0, err
	}
	if err := session.Start(sctx); err != nil {
		return 0, err
	}
	defer session.Stop()

	ticker := time.NewTicker(c.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sctx.Done():
			return delivered.Load(), nil
		case <-doneCh:
			return delivered.Load(), nil
		case e := <-errCh:
			return delivered.Load(), e
		case <-ticker.C:
			stats := session.Stats()
			rates := session.RateStats()
			slog.Info("session stats",
				"frames", stats.FrameCount,
				"suppressed", stats.FramesSuppressed,
				"bytes_read", stats.BytesRead,
				"fps", fmt.Sprintf("%.2f", stats.FPSReal),
				"fps_window", fmt.Sprintf("%.2f", rates.FPSMean),
				"stable", rates.IsStable,
				"latency_ms", stats.LatencyMS,
			)
		}
	}
}
