package paramsync

import (
	"time"

	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

// HashCheckOutcome is the result of a _HASH_CHECK exchange.
type HashCheckOutcome int

const (
	HashCheckHit HashCheckOutcome = iota
	HashCheckMiss
	HashCheckNoResponse
)

func (o HashCheckOutcome) String() string {
	switch o {
	case HashCheckHit:
		return "hit"
	case HashCheckMiss:
		return "miss"
	default:
		return "no_response"
	}
}

// negotiator runs the single _HASH_CHECK exchange of a session.
type negotiator struct {
	sess    *session
	send    func(mavlink.Payload) error
	timer   *watchdog
	timeout func() time.Duration
	logger  log.Logger

	requested bool
	pending   bool
}

// begin sends the probe and arms the hash-check timer. It does nothing if
// the session already sent one.
func (n *negotiator) begin() {
	if n.requested {
		return
	}
	n.requested = true
	n.pending = true
	n.sess.counters.HashCheckRequests++

	n.timer.arm(n.timeout())
	err := n.send(&mavlink.ParamRequestRead{
		TargetSystem:    n.sess.key.SystemID,
		TargetComponent: n.sess.key.ComponentID,
		ParamID:         mavlink.HashCheckParamID,
		ParamIndex:      -1,
	})
	if err != nil {
		// The timer falls back to a full fetch.
		n.logger.Error(err, "Failed to send hash check request")
	}
}

// resolve consumes a _HASH_CHECK response. ok is false when no exchange is
// waiting for one.
func (n *negotiator) resolve(live uint64) (outcome HashCheckOutcome, ok bool) {
	if !n.pending {
		return 0, false
	}
	n.pending = false
	n.timer.stop()

	n.sess.liveHash = &live
	if n.sess.cachedHash != nil && *n.sess.cachedHash == live {
		return HashCheckHit, true
	}
	return HashCheckMiss, true
}

// expire handles a timer expiry. It reports whether the expiry ended the exchange.
func (n *negotiator) expire(epoch uint64) bool {
	if !n.pending || !n.timer.fired(epoch) {
		return false
	}
	n.pending = false
	n.timer.stop()
	return true
}

func (n *negotiator) cancel() {
	n.pending = false
	n.timer.stop()
}
