package mjpegcapture

import (
	"errors"
	"sync/atomic"
	"time"
)

// Snapshot errors.
var (
	// ErrNoFrame means no frame has been delivered on this session yet.
	ErrNoFrame = errors.New("mjpeg-capture: no frame received yet")
	// ErrStaleFrame means the cached frame is older than the staleness window.
	ErrStaleFrame = errors.New("mjpeg-capture: latest frame is stale")
)

type cachedFrame struct {
	data []byte
	at   time.Time
}

// frameCache keeps the latest delivered frame for the Snapshot read path.
// A lock-free atomic.Value swap: the writer is the session goroutine,
// readers are arbitrary.
type frameCache struct {
	v atomic.Value
}

func (c *frameCache) store(data []byte, at time.Time) {
	c.v.Store(cachedFrame{data: data, at: at})
}

func (c *frameCache) latest(maxAge time.Duration) ([]byte, error) {
	cached, ok := c.v.Load().(cachedFrame)
	if !ok {
		return nil, ErrNoFrame
	}
	if time.Since(cached.at) > maxAge {
		return nil, ErrStaleFrame
	}
	return cached.data, nil
}
