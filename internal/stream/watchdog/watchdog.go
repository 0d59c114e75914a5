// Package watchdog provides the idle timer that kills a stalled stream.
package watchdog

import (
	"sync"
	"time"
)

// Watchdog is a resettable single-shot timer. When it fires it invokes
// the callback exactly once; Refresh pushes the deadline out and Disarm
// guarantees no late fire is observed after teardown.
type Watchdog struct {
	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	onFire func()
}

// New creates a disarmed watchdog. onFire runs on the timer goroutine;
// it should only signal (cancel a context), never block.
func New(onFire func()) *Watchdog {
	return &Watchdog{onFire: onFire}
}

// Arm schedules a fire after d unless refreshed or disarmed first.
func (w *Watchdog) Arm(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	gen := w.gen
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, func() { w.fire(gen) })
}

// Refresh cancels any pending fire and reschedules.
func (w *Watchdog) Refresh(d time.Duration) {
	w.Arm(d)
}

// Disarm cancels any pending fire with no rescheduling. Safe to call
// more than once; a fire already in flight is suppressed.
func (w *Watchdog) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// fire runs the callback only if the generation is still current, so a
// timer that lost the Stop race stays silent.
func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	live := gen == w.gen
	w.mu.Unlock()

	if live {
		w.onFire()
	}
}
