// Package rate computes delivery-rate statistics over frame timestamps.
package rate

import (
	"math"
	"time"
)

const (
	// fpsStabilityThreshold is the maximum allowed FPS standard deviation
	// as a fraction of mean FPS. Example: 10 FPS mean is stable while
	// stddev stays under 1.5 FPS.
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum allowed mean jitter as a
	// fraction of the expected inter-frame interval.
	jitterStabilityThreshold = 0.20
)

// Stats summarizes the delivery rate observed over a window of frames.
type Stats struct {
	// FramesReceived is the number of frames in the window
	FramesReceived int
	// Duration is the measurement window
	Duration time.Duration
	// FPSMean is the overall rate across the window
	FPSMean float64
	// FPSStdDev is the standard deviation of instantaneous FPS
	FPSStdDev float64
	// FPSMin is the lowest instantaneous FPS observed
	FPSMin float64
	// FPSMax is the highest instantaneous FPS observed
	FPSMax float64
	// JitterMean is the mean deviation from the expected interval (seconds)
	JitterMean float64
	// JitterStdDev is the standard deviation of the jitter samples
	JitterStdDev float64
	// JitterMax is the worst single deviation observed (seconds)
	JitterMax float64
	// IsStable is true when FPS stddev < 15% of mean and jitter < 20%
	// of the expected interval
	IsStable bool
}

// Calculate derives rate statistics from frame timestamps.
//
// Instantaneous FPS is taken per inter-frame interval; jitter is each
// interval's absolute deviation from the interval the mean rate predicts.
// Fewer than two frames yields a zeroed, unstable result rather than an
// error - an empty window is a valid observation.
func Calculate(frameTimes []time.Time, totalDuration time.Duration) *Stats {
	n := len(frameTimes)
	stats := &Stats{
		FramesReceived: n,
		Duration:       totalDuration,
	}
	if n == 0 || totalDuration <= 0 {
		return stats
	}

	stats.FPSMean = float64(n) / totalDuration.Seconds()

	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		if interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
		}
	}
	if len(instantaneous) == 0 {
		return stats
	}

	stats.FPSMin = instantaneous[0]
	stats.FPSMax = instantaneous[0]
	var sumSquares float64
	for _, fps := range instantaneous {
		if fps < stats.FPSMin {
			stats.FPSMin = fps
		}
		if fps > stats.FPSMax {
			stats.FPSMax = fps
		}
		diff := fps - stats.FPSMean
		sumSquares += diff * diff
	}
	stats.FPSStdDev = math.Sqrt(sumSquares / float64(len(instantaneous)))

	expectedInterval := 1.0 / stats.FPSMean
	jitters := make([]float64, 0, n-1)
	var jitterSum float64
	for i := 1; i < n; i++ {
		j := math.Abs(frameTimes[i].Sub(frameTimes[i-1]).Seconds() - expectedInterval)
		jitters = append(jitters, j)
		jitterSum += j
		if j > stats.JitterMax {
			stats.JitterMax = j
		}
	}
	stats.JitterMean = jitterSum / float64(len(jitters))

	var jitterSumSquares float64
	for _, j := range jitters {
		diff := j - stats.JitterMean
		jitterSumSquares += diff * diff
	}
	stats.JitterStdDev = math.Sqrt(jitterSumSquares / float64(len(jitters)))

	fpsStable := stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold
	jitterStable := stats.JitterMean < expectedInterval*jitterStabilityThreshold
	stats.IsStable = fpsStable && jitterStable

	return stats
}
