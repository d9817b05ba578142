package mjpegcapture

import (
	"time"

	"github.com/visiona/mjpeg-capture/internal/rate"
)

// RateStats is re-exported from the internal rate package; the canonical
// implementation and field documentation live in internal/rate/stats.go.
type RateStats = rate.Stats

// CalculateRateStats derives delivery-rate statistics from frame
// timestamps over a measurement window.
//
// This function:
//  1. Calculates mean FPS across the window
//  2. Calculates instantaneous FPS per inter-frame interval
//  3. Finds min/max instantaneous FPS and their standard deviation
//  4. Calculates jitter against the expected inter-frame interval
//  5. Flags stability (stddev < 15% of mean AND jitter < 20% of interval)
func CalculateRateStats(frameTimes []time.Time, totalDuration time.Duration) *RateStats {
	return rate.Calculate(frameTimes, totalDuration)
}

// RateStats reports delivery-rate statistics over the session's most
// recent frames (up to the last 120 deliveries). Thread-safe.
//
// A healthy camera shows IsStable=true; persistent instability usually
// means network congestion or a struggling encoder upstream.
func (s *Session) RateStats() *RateStats {
	s.rateMu.Lock()
	times := make([]time.Time, len(s.frameTimes))
	copy(times, s.frameTimes)
	s.rateMu.Unlock()

	var window time.Duration
	if len(times) >= 2 {
		window = times[len(times)-1].Sub(times[0])
	}
	return rate.Calculate(times, window)
}
