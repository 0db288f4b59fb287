package fix

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the watchdog needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// SystemAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func SystemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Watchdog calls onExpire once the stream has been silent for the timeout.
// Every Kick reschedules; a timer that fires after a newer Kick is ignored.
type Watchdog struct {
	mu       sync.Mutex
	after    AfterFunc
	timeout  time.Duration
	onExpire func()

	gen     uint64
	timer   Timer
	stopped bool
}

func NewWatchdog(timeout time.Duration, onExpire func(), after AfterFunc) *Watchdog {
	if after == nil {
		after = SystemAfterFunc
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Watchdog{after: after, timeout: timeout, onExpire: onExpire}
}

func (w *Watchdog) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.gen++
	gen := w.gen
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.after(w.timeout, func() { w.fire(gen) })
}

func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	if w.stopped || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	cb := w.onExpire
	w.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Stop cancels the pending timer. Later Kicks are ignored.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
