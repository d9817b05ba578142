package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDial_StatusPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	conn, err := Dial(context.Background(), srv.Client(), srv.URL, nil, time.Second, nil)
	require.NoError(t, err, "a non-2xx response is a successful dial; status policy is the caller's")
	defer conn.Close()

	assert.Equal(t, http.StatusNotFound, conn.Status())
}

func TestDial_MergesHeaders(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Authorization", "Basic dXNlcjpwYXNz")

	conn, err := Dial(context.Background(), srv.Client(), srv.URL, header, time.Second, nil)
	require.NoError(t, err)
	conn.Close()

	assert.Equal(t, "Basic dXNlcjpwYXNz", gotAuth.Load())
}

func TestConn_DeliversChunksInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("hello "))
		flusher.Flush()
		w.Write([]byte("mjpeg "))
		flusher.Flush()
		w.Write([]byte("world"))
	}))
	defer srv.Close()

	var bytesRead uint64
	conn, err := Dial(context.Background(), srv.Client(), srv.URL, nil, time.Second, &bytesRead)
	require.NoError(t, err)
	defer conn.Close()

	var got []byte
	for chunk := range conn.Chunks() {
		got = append(got, chunk...)
	}

	assert.Equal(t, "hello mjpeg world", string(got))
	assert.NoError(t, conn.Err(), "server EOF is a clean end, not a transport fault")
	assert.Equal(t, uint64(len(got)), atomic.LoadUint64(&bytesRead))
}

func TestDial_ConnectTimeout(t *testing.T) {
	// A listener that accepts and then stays silent: headers never arrive.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	start := time.Now()
	_, err = Dial(context.Background(), &http.Client{}, "http://"+ln.Addr().String(), nil, 100*time.Millisecond, nil)

	require.ErrorIs(t, err, ErrConnectTimeout)
	assert.Less(t, time.Since(start), time.Second, "timeout must fire near the configured window")
}

func TestDial_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := Dial(ctx, srv.Client(), srv.URL, nil, time.Second, nil)
	require.Error(t, err)
}

func TestConn_CloseIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 100; i++ {
			if _, err := w.Write(make([]byte, 1024)); err != nil {
				return
			}
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
	}))
	defer srv.Close()

	conn, err := Dial(context.Background(), srv.Client(), srv.URL, nil, time.Second, nil)
	require.NoError(t, err)

	conn.Close()
	conn.Close()
	conn.Close()

	// The reader goroutine must wind down and close the channel.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-conn.Chunks():
			if !ok {
				assert.NoError(t, conn.Err(), "local cancellation is not a transport fault")
				return
			}
		case <-deadline:
			t.Fatal("chunk channel never closed after Close")
		}
	}
}

func TestClassify(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		err     error
		wantNil bool
	}{
		{"clean EOF", context.Background(), io.EOF, true},
		{"wrapped EOF", context.Background(), errors.Join(errors.New("read"), io.EOF), true},
		{"local cancel", cancelled, errors.New("use of closed network connection"), true},
		{"context canceled", context.Background(), context.Canceled, true},
		{"real failure", context.Background(), errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.ctx, tt.err)
			if tt.wantNil {
				assert.NoError(t, got)
			} else {
				assert.Error(t, got)
			}
		})
	}
}

func TestIsBenignClose(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unexpected EOF", io.ErrUnexpectedEOF, true},
		{"wrapped unexpected EOF", errors.Join(errors.New("read body"), io.ErrUnexpectedEOF), true},
		{"net closed", net.ErrClosed, true},
		{"idle connection message", errors.New("http: server closed idle connection"), true},
		{"early close message", errors.New("connection closed before full header was received"), true},
		{"ordinary failure", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBenignClose(tt.err))
		})
	}
}
