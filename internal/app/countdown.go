package app

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Countdown is a one-shot per-question timer. Exactly one of the expiry
// callback or a Claim wins; everything after that is a no-op.
type Countdown struct {
	clock    clock.Clock
	started  time.Time
	duration time.Duration

	mu     sync.Mutex
	timer  *clock.Timer
	closed bool
}

// StartCountdown starts the timer. onExpire receives the countdown itself and
// runs only if nobody claimed it first.
func StartCountdown(c clock.Clock, d time.Duration, onExpire func(cd *Countdown, elapsed time.Duration)) *Countdown {
	cd := &Countdown{clock: c, started: c.Now(), duration: d}
	// Claim waits on mu, so the callback never sees a half-built countdown.
	cd.mu.Lock()
	cd.timer = c.AfterFunc(d, func() {
		if elapsed, ok := cd.Claim(); ok {
			onExpire(cd, elapsed)
		}
	})
	cd.mu.Unlock()
	return cd
}

// Claim closes the countdown and reports the elapsed time since it started.
// ok is false if it was already closed by expiry, a submit or Cancel.
func (cd *Countdown) Claim() (elapsed time.Duration, ok bool) {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	if cd.closed {
		return 0, false
	}
	cd.closed = true
	if cd.timer != nil {
		cd.timer.Stop()
	}
	return cd.clock.Now().Sub(cd.started), true
}

// Cancel abandons the countdown without firing.
func (cd *Countdown) Cancel() {
	cd.Claim()
}

// Closed reports whether the countdown has been claimed.
func (cd *Countdown) Closed() bool {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return cd.closed
}

// Remaining is the time left, never negative.
func (cd *Countdown) Remaining() time.Duration {
	left := cd.duration - cd.clock.Now().Sub(cd.started)
	if left < 0 {
		return 0
	}
	return left
}
