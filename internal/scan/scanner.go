// Package scan extracts complete JPEG frames from an MJPEG byte stream.
//
// The scanner is a pure state machine: it consumes arbitrarily-sized byte
// chunks in arrival order and emits every frame whose end marker it
// observes. It knows nothing about HTTP, timers or delivery policy, and it
// does not parse MIME part headers - the stream is treated as raw bytes
// scanned for the JPEG start/end marker pairs, which makes it tolerant of
// any transport chunking.
package scan

// JPEG marker bytes. A marker is the prefix byte followed by the
// start-of-image or end-of-image byte.
const (
	markerPrefix byte = 0xFF
	markerSOI    byte = 0xD8
	markerEOI    byte = 0xD9
)

// Scanner accumulates bytes between a confirmed start-of-image marker and
// its end marker. The buffer never spans backward across an emitted frame.
//
// Not safe for concurrent use; feed it from a single goroutine in chunk
// arrival order.
type Scanner struct {
	buf []byte
}

// New returns a Scanner with no candidate frame in progress.
func New() *Scanner {
	return &Scanner{}
}

// Pending returns the number of buffered bytes of the in-progress
// candidate frame. Zero means the scanner is between frames.
func (s *Scanner) Pending() int {
	return len(s.buf)
}

// Append consumes one chunk and returns the complete frames it finished,
// in the order their end markers were observed. The returned slices are
// owned by the caller; the scanner retains no reference.
//
// Rules, applied byte-pair-wise over the chunk:
//
//   - a start marker resets the buffer to its prefix byte, discarding any
//     unterminated candidate (resynchronization: a new start always wins)
//   - an end marker with a candidate in progress completes the frame
//   - bytes seen before any start marker are discarded
//
// A marker split across two chunks is handled by the carried buffer: the
// trailing prefix byte of the previous chunk pairs with the first byte of
// this one. Chunks of length 0 or 1 are safe.
func (s *Scanner) Append(chunk []byte) [][]byte {
	n := len(chunk)
	if n == 0 {
		return nil
	}

	var frames [][]byte
	i := 0

	// End marker split across the chunk boundary: buffered 0xFF meets a
	// leading 0xD9.
	if len(s.buf) > 0 && s.buf[len(s.buf)-1] == markerPrefix && chunk[0] == markerEOI {
		s.buf = append(s.buf, markerEOI)
		frames = append(frames, s.take())
		i = 1
	}

	for ; i < n-1; i++ {
		b, next := chunk[i], chunk[i+1]
		switch {
		case b == markerPrefix && next == markerSOI:
			// New start wins over any stale unterminated candidate.
			s.buf = append(s.buf[:0], markerPrefix)
		case b == markerPrefix && next == markerEOI && len(s.buf) > 0:
			s.buf = append(s.buf, markerPrefix, markerEOI)
			frames = append(frames, s.take())
		case len(s.buf) > 0:
			s.buf = append(s.buf, b)
			if i == n-2 {
				// Last pair: carry the final byte too, so nothing is
				// dropped at the chunk boundary.
				s.buf = append(s.buf, next)
			}
		}
	}

	return frames
}

// take hands out a copy of the accumulated frame and clears the buffer for
// the next candidate. Copying keeps emitted frames immutable while the
// buffer is reused.
func (s *Scanner) take() []byte {
	frame := make([]byte, len(s.buf))
	copy(frame, s.buf)
	s.buf = s.buf[:0]
	return frame
}
