// Package watchdog provides the renewing frame timeout raced against
// chunk arrival in the session select loop.
package watchdog

import "time"

// Watchdog is a single-owner renewing timer. The owning goroutine selects
// on Expired and calls Renew whenever progress is observed; the timeout is
// always measured from the most recent Renew, not from start.
//
// Not safe for concurrent use: Renew, Expired and Stop must all be called
// from the goroutine that consumes Expired. That is what makes the
// stop/drain/reset dance on the underlying timer race-free.
type Watchdog struct {
	d     time.Duration
	timer *time.Timer
}

// New arms a watchdog that expires after d unless renewed.
func New(d time.Duration) *Watchdog {
	return &Watchdog{
		d:     d,
		timer: time.NewTimer(d),
	}
}

// Expired fires once the full window elapses without a Renew.
func (w *Watchdog) Expired() <-chan time.Time {
	return w.timer.C
}

// Renew restarts the window from now.
func (w *Watchdog) Renew() {
	if !w.timer.Stop() {
		// Timer already fired; drain the channel so Reset starts clean.
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.timer.Reset(w.d)
}

// Stop disarms the watchdog. Safe to call more than once.
func (w *Watchdog) Stop() {
	w.timer.Stop()
}
