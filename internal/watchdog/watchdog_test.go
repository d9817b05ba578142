package watchdog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatchdog_ExpiresWithoutRenew(t *testing.T) {
	w := New(50 * time.Millisecond)
	defer w.Stop()

	select {
	case <-w.Expired():
	case <-time.After(time.Second):
		t.Fatal("watchdog never expired")
	}
}

func TestWatchdog_RenewPostponesExpiry(t *testing.T) {
	w := New(80 * time.Millisecond)
	defer w.Stop()

	// Keep renewing for well past the window; the watchdog must stay quiet.
	for i := 0; i < 5; i++ {
		time.Sleep(40 * time.Millisecond)
		select {
		case <-w.Expired():
			t.Fatal("watchdog expired despite renewals")
		default:
		}
		w.Renew()
	}

	// Stop renewing; now it must fire, measured from the last renewal.
	start := time.Now()
	select {
	case <-w.Expired():
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("watchdog never expired after renewals stopped")
	}
}

func TestWatchdog_RenewAfterExpiryRearms(t *testing.T) {
	w := New(30 * time.Millisecond)
	defer w.Stop()

	// Let it fire without draining, then renew; the stale tick must be
	// swallowed so the next expiry reflects the renewed window.
	time.Sleep(60 * time.Millisecond)
	w.Renew()

	select {
	case tick := <-w.Expired():
		if time.Since(tick) > 20*time.Millisecond {
			t.Fatal("received a stale expiry from before the renewal")
		}
	case <-time.After(time.Second):
		t.Fatal("watchdog never re-fired after renewal")
	}
}

func TestWatchdog_StopIdempotent(t *testing.T) {
	w := New(10 * time.Millisecond)
	w.Stop()
	w.Stop()
}
