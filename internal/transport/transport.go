// Package transport turns an HTTP response body into a cancellable stream
// of byte chunks.
//
// Dial issues the GET request and races it against a connect timeout; the
// returned Conn owns the response body and a reader goroutine that copies
// fixed-size chunks onto a channel. Closing the Conn cancels the request
// context, which unblocks both the reader and any in-flight body read, so
// teardown never leaks a goroutine or a connection.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// chunkSize is the read granularity. Frames routinely span many chunks;
// the scanner upstream reassembles them.
const chunkSize = 4096

// Conn is one open stream connection. Chunks are delivered in read order
// on the channel returned by Chunks; after that channel closes, Err
// reports why (nil for a server-side end of stream or local cancellation).
type Conn struct {
	status    int
	body      io.ReadCloser
	cancel    context.CancelFunc
	chunks    chan []byte
	bytesRead *uint64

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// Dial issues a GET request against url with the given headers merged in,
// waiting at most connectTimeout for response headers.
//
// The connect timeout covers the whole connect phase (dial, request write,
// response headers) but not the response body: a multipart stream outlives
// any sane connect window. On expiry Dial returns ErrConnectTimeout with
// the in-flight request cancelled and its response, if one still arrives,
// discarded. The caller owns the returned Conn and must Close it.
//
// bytesRead, when non-nil, is incremented atomically with every chunk read
// off the wire.
func Dial(ctx context.Context, client *http.Client, url string, header http.Header, connectTimeout time.Duration, bytesRead *uint64) (*Conn, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	type dialResult struct {
		resp *http.Response
		err  error
	}
	done := make(chan dialResult, 1)
	go func() {
		resp, err := client.Do(req)
		done <- dialResult{resp: resp, err: err}
	}()

	// A response that arrives after the race is lost must still release
	// its connection.
	discardLate := func() {
		if res := <-done; res.resp != nil {
			res.resp.Body.Close()
		}
	}

	timer := time.NewTimer(connectTimeout)
	defer timer.Stop()

	var resp *http.Response
	select {
	case res := <-done:
		if res.err != nil {
			cancel()
			return nil, fmt.Errorf("transport: connect: %w", res.err)
		}
		resp = res.resp

	case <-timer.C:
		cancel()
		go discardLate()
		return nil, ErrConnectTimeout

	case <-ctx.Done():
		cancel()
		go discardLate()
		return nil, ctx.Err()
	}

	c := &Conn{
		status:    resp.StatusCode,
		body:      resp.Body,
		cancel:    cancel,
		chunks:    make(chan []byte, 1),
		bytesRead: bytesRead,
	}
	go c.readLoop(reqCtx)
	return c, nil
}

// Status returns the HTTP status code of the response.
func (c *Conn) Status() int {
	return c.status
}

// Chunks returns the chunk channel. It closes when the stream ends, fails,
// or the Conn is closed; consult Err afterwards.
func (c *Conn) Chunks() <-chan []byte {
	return c.chunks
}

// Err reports the classified read failure after Chunks has closed.
// nil means the stream ended without a transport fault (server EOF) or was
// cancelled locally.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close releases the connection. Idempotent; safe from any goroutine.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if err := c.body.Close(); err != nil {
			// Teardown runs on already-terminal paths; log and move on.
			slog.Debug("transport: body close failed", "error", err)
		}
	})
}

// readLoop pumps body chunks onto the channel until the body errors or the
// context is cancelled. Each chunk is copied before sending: the read
// buffer is reused and the consumer holds chunks across reads.
func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.chunks)

	buf := make([]byte, chunkSize)
	for {
		n, err := c.body.Read(buf)
		if n > 0 {
			if c.bytesRead != nil {
				atomic.AddUint64(c.bytesRead, uint64(n))
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case c.chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			c.setErr(Classify(ctx, err))
			return
		}
	}
}

func (c *Conn) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}
