package vehicles

import (
	"sync/atomic"
	"time"

	"github.com/autopeer-io/paramsync/internal/paramsync"
)

// Timeouts holds the protocol timeouts and may be updated while sessions run.
// New values apply the next time a session arms a timer.
type Timeouts struct {
	v atomic.Pointer[paramsync.Timeouts]
}

func NewTimeouts(hashCheck, fetch time.Duration) *Timeouts {
	t := &Timeouts{}
	t.Set(hashCheck, fetch)
	return t
}

// Set replaces both timeouts. Non-positive values keep the defaults.
func (t *Timeouts) Set(hashCheck, fetch time.Duration) {
	v := paramsync.DefaultTimeouts()
	if hashCheck > 0 {
		v.HashCheck = hashCheck
	}
	if fetch > 0 {
		v.Fetch = fetch
	}
	t.v.Store(&v)
}

// Get returns the current timeouts.
func (t *Timeouts) Get() paramsync.Timeouts {
	if v := t.v.Load(); v != nil {
		return *v
	}
	return paramsync.DefaultTimeouts()
}
