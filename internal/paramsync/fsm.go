package paramsync

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	fsmutil "github.com/autopeer-io/paramsync/internal/pkg/util/fsm"
)

const (
	// EventCheckHash (Idle) starts the _HASH_CHECK exchange.
	EventCheckHash = "check_hash"
	// EventFetch (Idle) goes straight to a full fetch.
	EventFetch = "fetch"
	// EventSkipHighLatency (Idle) marks parameters missing on a high-latency link.
	EventSkipHighLatency = "skip_high_latency"
	// EventSkipLogReplay (Idle) marks parameters missing on a log replay link.
	EventSkipLogReplay = "skip_log_replay"
	// EventHashHit reuses the cached parameters.
	EventHashHit = "hash_hit"
	// EventHashMiss falls back to a full fetch after a mismatching response.
	EventHashMiss = "hash_miss"
	// EventHashTimeout falls back to a full fetch when no response arrived.
	EventHashTimeout = "hash_timeout"
	// EventFetchComplete finishes a full fetch.
	EventFetchComplete = "fetch_complete"
	// EventFetchTimeout fails the session.
	EventFetchTimeout = "fetch_timeout"
	// EventRefresh forces a full fetch from any state.
	EventRefresh = "refresh"
)

func newSessionFSM(c *Coordinator) *fsm.FSM {
	var (
		idle      = string(StateIdle)
		hashCheck = string(StateAwaitingHashCheck)
		fullList  = string(StateAwaitingFullList)
		ready     = string(StateReady)
		failed    = string(StateFailed)
	)

	events := fsm.Events{
		{Name: EventCheckHash, Src: []string{idle}, Dst: hashCheck},
		{Name: EventFetch, Src: []string{idle}, Dst: fullList},

		// High-latency and log replay links skip acquisition on separate events.
		{Name: EventSkipHighLatency, Src: []string{idle}, Dst: ready},
		{Name: EventSkipLogReplay, Src: []string{idle}, Dst: ready},

		{Name: EventHashHit, Src: []string{hashCheck}, Dst: ready},
		{Name: EventHashMiss, Src: []string{hashCheck}, Dst: fullList},
		{Name: EventHashTimeout, Src: []string{hashCheck}, Dst: fullList},

		{Name: EventFetchComplete, Src: []string{fullList}, Dst: ready},
		{Name: EventFetchTimeout, Src: []string{fullList}, Dst: failed},

		{Name: EventRefresh, Src: []string{idle, hashCheck, fullList, ready, failed}, Dst: fullList},
	}

	callbacks := fsm.Callbacks{
		"before_" + EventRefresh: fsmutil.WrapGuard(c.guardRefresh),
		"enter_" + hashCheck:     fsmutil.WrapEvent(c.actionEnterHashCheck),
		"leave_" + hashCheck:     fsmutil.WrapEvent(c.actionLeaveHashCheck),
		"enter_" + fullList:      fsmutil.WrapEvent(c.actionEnterFullList),
		"leave_" + fullList:      fsmutil.WrapEvent(c.actionLeaveFullList),
		"enter_state":            fsmutil.WrapEvent(c.actionEnterState),
	}

	return fsm.NewFSM(idle, events, callbacks)
}

var errFetchInFlight = errors.New("full fetch already in flight")

// guardRefresh cancels a refresh while a full fetch is running. Otherwise it
// opens the new cycle before any state is entered.
func (c *Coordinator) guardRefresh(_ context.Context, e *fsm.Event) error {
	if State(e.Src) == StateAwaitingFullList {
		return errFetchInFlight
	}
	c.beginCycle()
	c.logger.Info("Manual parameter refresh", "cycle", c.sess.cycle)
	return nil
}

func (c *Coordinator) actionEnterHashCheck(_ context.Context, _ *fsm.Event) error {
	c.negotiator.begin()
	return nil
}

// actionLeaveHashCheck invalidates the hash-check timer whichever way the
// state is left, including a manual refresh.
func (c *Coordinator) actionLeaveHashCheck(_ context.Context, _ *fsm.Event) error {
	c.negotiator.cancel()
	return nil
}

func (c *Coordinator) actionEnterFullList(_ context.Context, _ *fsm.Event) error {
	if !c.fetcher.begin() {
		c.logger.Debug("Fetch already in flight")
	}
	return nil
}

func (c *Coordinator) actionLeaveFullList(_ context.Context, _ *fsm.Event) error {
	c.fetcher.cancel()
	return nil
}

func (c *Coordinator) actionEnterState(_ context.Context, e *fsm.Event) error {
	from, to := State(e.Src), State(e.Dst)
	c.trackState(from, to)
	c.logger.Info("Parameter session state changed", "event", e.Event, "from", from, "state", to)

	c.publishSnapshot()
	c.subs.publish(c.newEvent(EventStateChanged, from, to))

	if to == StateReady {
		c.announceReady(e.Event)
	}
	return nil
}
