package paramsync

import (
	"time"

	"k8s.io/utils/clock"
)

type timerKind int

const (
	timerHashCheck timerKind = iota
	timerFetch
)

func (k timerKind) String() string {
	if k == timerHashCheck {
		return "hash_check"
	}
	return "fetch"
}

// watchdog is a restartable one-shot timer owned by the coordinator loop.
// Expiry is posted back to the loop tagged with the epoch it was armed in, so
// an expiry that races with stop or re-arm is recognised as stale.
type watchdog struct {
	clock clock.WithDelayedExecution
	kind  timerKind
	post  func(event)

	timer clock.Timer
	epoch uint64
}

func newWatchdog(clk clock.WithDelayedExecution, kind timerKind, post func(event)) *watchdog {
	return &watchdog{clock: clk, kind: kind, post: post}
}

func (w *watchdog) arm(d time.Duration) {
	w.stop()
	epoch := w.epoch
	kind := w.kind
	w.timer = w.clock.AfterFunc(d, func() {
		w.post(event{kind: eventTimeout, timer: kind, epoch: epoch})
	})
}

func (w *watchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.epoch++
}

func (w *watchdog) armed() bool {
	return w.timer != nil
}

// fired reports whether an expiry with epoch belongs to the current arming.
func (w *watchdog) fired(epoch uint64) bool {
	return w.timer != nil && epoch == w.epoch
}
