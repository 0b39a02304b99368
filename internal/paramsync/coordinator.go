// Package paramsync decides, per vehicle connection, whether a cached
// parameter set can be trusted and fetches the full set when it cannot.
//
// A Coordinator owns one vehicle session. Every input (connect, inbound
// message, manual refresh, timer expiry) is serialised through its event
// loop, so session state is only ever touched by one goroutine.
package paramsync

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/paramsync/internal/paramsync/cache"
	"github.com/autopeer-io/paramsync/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/paramsync/internal/pkg/util/fsm"
	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

// Sender delivers messages to a vehicle.
type Sender interface {
	Send(ctx context.Context, msg *mavlink.Message) error
}

// Config wires a Coordinator to its collaborators.
type Config struct {
	Key       VehicleKey
	LinkClass LinkClass

	Sender Sender
	Store  cache.Store

	// Timeouts is consulted each time a timer is armed. Nil means DefaultTimeouts.
	Timeouts func() Timeouts
	// Clock defaults to the real clock.
	Clock  clock.WithDelayedExecution
	Logger log.Logger

	// SystemID and ComponentID address the ground station on the link.
	SystemID    uint8
	ComponentID uint8
}

type eventKind int

const (
	eventConnect eventKind = iota
	eventMessage
	eventRefresh
	eventTimeout
)

type event struct {
	kind  eventKind
	msg   *mavlink.Message
	timer timerKind
	epoch uint64
}

// session is the per-connection state. It is only accessed from the loop.
type session struct {
	id        string
	key       VehicleKey
	linkClass LinkClass

	cachedHash   *uint64
	cachedParams map[string]float64
	liveHash     *uint64
	parameters   map[string]float64
	missing      bool

	cycle       int
	readyCycle  int
	cycleStart  time.Time
	connectedAt time.Time
	counters    Counters
}

// Coordinator sequences the hash check and the full fetch for one vehicle
// session and publishes a single readiness signal per sync cycle.
type Coordinator struct {
	cfg    Config
	clock  clock.WithDelayedExecution
	logger log.Logger

	sess       *session
	fsm        *fsm.FSM
	negotiator *negotiator
	fetcher    *fetcher
	loopCtx    context.Context

	events    chan event
	quit      chan struct{}
	stopped   chan struct{}
	started   atomic.Bool
	closeOnce sync.Once

	subs broadcaster

	mu        sync.RWMutex
	snapshot  Snapshot
	published map[string]float64
}

// NewCoordinator builds an idle session. Call Connect to start it.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Sender == nil {
		return nil, errors.New("paramsync: sender is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("paramsync: cache store is required")
	}
	if cfg.Timeouts == nil {
		cfg.Timeouts = DefaultTimeouts
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Std()
	}

	sess := &session{
		id:         uuid.NewString(),
		key:        cfg.Key,
		linkClass:  cfg.LinkClass,
		parameters: map[string]float64{},
	}

	c := &Coordinator{
		cfg:     cfg,
		clock:   cfg.Clock,
		sess:    sess,
		events:  make(chan event, 256),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		loopCtx: context.Background(),
	}
	c.logger = cfg.Logger.WithName("paramsync").WithValues("vehicle", cfg.Key.String(), "session", sess.id)

	post := func(ev event) { _ = c.post(ev) }
	c.negotiator = &negotiator{
		sess:    sess,
		send:    c.send,
		timer:   newWatchdog(cfg.Clock, timerHashCheck, post),
		timeout: func() time.Duration { return c.cfg.Timeouts().HashCheck },
		logger:  c.logger,
	}
	c.fetcher = &fetcher{
		sess:     sess,
		send:     c.send,
		timer:    newWatchdog(cfg.Clock, timerFetch, post),
		timeout:  func() time.Duration { return c.cfg.Timeouts().Fetch },
		logger:   c.logger,
		strategy: FetchParamList,
	}
	if cfg.LinkClass == LinkFileTransfer {
		c.fetcher.strategy = FetchFileTransfer
	}

	c.fsm = newSessionFSM(c)
	c.trackState("", StateIdle)
	c.publishSnapshot()
	return c, nil
}

// Key returns the vehicle key of the session.
func (c *Coordinator) Key() VehicleKey { return c.sess.key }

// SessionID returns the unique id of the session.
func (c *Coordinator) SessionID() string { return c.sess.id }

// Subscribe registers fn for session events and returns a function that
// removes it.
func (c *Coordinator) Subscribe(fn Subscriber) func() {
	return c.subs.subscribe(fn)
}

// Connect starts the event loop and the sync path selected by the link class.
// It does not block on the vehicle.
func (c *Coordinator) Connect(ctx context.Context) error {
	select {
	case <-c.quit:
		return ErrSessionClosed
	default:
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyConnected
	}
	select {
	case <-c.quit:
		c.finishUnstarted()
		return ErrSessionClosed
	default:
	}

	go c.run(ctx)
	return c.post(event{kind: eventConnect})
}

// HandleMessage queues an inbound message from the vehicle.
func (c *Coordinator) HandleMessage(msg *mavlink.Message) error {
	if msg == nil {
		return nil
	}
	return c.post(event{kind: eventMessage, msg: msg})
}

// RefreshAllParameters forces a full fetch, bypassing the hash check, and
// starts a new sync cycle.
func (c *Coordinator) RefreshAllParameters() error {
	return c.post(event{kind: eventRefresh})
}

// Disconnect stops the session and every pending timer. It waits for the
// event loop to exit and must not be called from a Subscriber.
func (c *Coordinator) Disconnect() {
	c.closeOnce.Do(func() {
		close(c.quit)
		if c.started.CompareAndSwap(false, true) {
			c.finishUnstarted()
		}
	})
	<-c.stopped
}

// finishUnstarted closes a session whose loop never ran.
func (c *Coordinator) finishUnstarted() {
	metrics.Sessions.WithLabelValues(string(StateIdle)).Dec()
	close(c.stopped)
}

// Done is closed once the session has stopped.
func (c *Coordinator) Done() <-chan struct{} {
	return c.stopped
}

// Snapshot returns the latest published view of the session.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Parameters returns a copy of the parameter set as of the last readiness.
func (c *Coordinator) Parameters() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.published)
}

func (c *Coordinator) post(ev event) error {
	if !c.started.Load() {
		return ErrNotConnected
	}
	select {
	case <-c.quit:
		return ErrSessionClosed
	default:
	}

	select {
	case c.events <- ev:
		return nil
	case <-c.quit:
		return ErrSessionClosed
	case <-c.stopped:
		return ErrSessionClosed
	}
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.stopped)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.loopCtx = ctx

	for {
		select {
		case <-c.quit:
			c.teardown()
			return
		case <-ctx.Done():
			c.teardown()
			return
		case ev := <-c.events:
			c.dispatch(ev)
		}
	}
}

func (c *Coordinator) dispatch(ev event) {
	switch ev.kind {
	case eventConnect:
		c.onConnect()
	case eventMessage:
		c.onMessage(ev.msg)
	case eventRefresh:
		c.onRefresh()
	case eventTimeout:
		c.onTimeout(ev.timer, ev.epoch)
	}
	c.publishSnapshot()
}

func (c *Coordinator) teardown() {
	c.negotiator.cancel()
	c.fetcher.cancel()
	metrics.Sessions.WithLabelValues(string(c.state())).Dec()
	c.logger.Info("Parameter session closed", "state", c.state())
}

func (c *Coordinator) onConnect() {
	now := c.clock.Now()
	c.sess.connectedAt = now
	c.sess.cycle = 1
	c.sess.cycleStart = now

	c.logger.Info("Vehicle connected", "linkClass", c.sess.linkClass.String(), "autopilot", c.sess.key.Autopilot.String())

	if event, ok := c.skipEvent(); ok {
		c.fire(event)
		return
	}

	switch c.sess.linkClass {
	case LinkFileTransfer:
		c.fire(EventFetch)
	default:
		if !SupportsHashCheck(c.sess.key.Autopilot) {
			c.fire(EventFetch)
			return
		}
		c.loadCache()
		c.fire(EventCheckHash)
	}
}

// loadCache reads the stored entry. Absent and unreadable entries both leave
// cachedHash unset, which makes any response a miss.
func (c *Coordinator) loadCache() {
	entry, err := c.cfg.Store.Load(c.loopCtx, c.sess.key)
	switch {
	case err == nil:
		h := entry.Hash
		c.sess.cachedHash = &h
		c.sess.cachedParams = entry.Params
		c.logger.Debug("Loaded cached parameters", "hash", h, "count", len(entry.Params))
	case errors.Is(err, cache.ErrNotFound):
		c.logger.Debug("No cached parameters")
	default:
		c.logger.Warn("Ignoring unreadable parameter cache", "error", err.Error())
	}
}

func (c *Coordinator) onMessage(msg *mavlink.Message) {
	metrics.LinkMessagesTotal.WithLabelValues("in", msg.Type().String()).Inc()
	if msg.SystemID != c.sess.key.SystemID {
		return
	}

	switch p := msg.Payload.(type) {
	case *mavlink.ParamValue:
		if p.IsHashCheck() {
			c.onHashCheckValue(p)
			return
		}
		c.onParamValue(p)
	case *mavlink.FileTransferData:
		c.onFileData(p)
	}
}

func (c *Coordinator) onHashCheckValue(p *mavlink.ParamValue) {
	outcome, ok := c.negotiator.resolve(p.Hash)
	if !ok {
		metrics.IgnoredMessagesTotal.WithLabelValues("hash_check").Inc()
		c.logger.Debug("Ignoring unexpected hash check response", "state", c.state())
		return
	}

	metrics.HashCheckTotal.WithLabelValues(outcome.String()).Inc()
	c.logger.Info("Hash check answered", "outcome", outcome.String(), "liveHash", p.Hash)

	if outcome == HashCheckHit {
		c.sess.parameters = maps.Clone(c.sess.cachedParams)
		c.fire(EventHashHit)
		return
	}
	c.fire(EventHashMiss)
}

func (c *Coordinator) onParamValue(p *mavlink.ParamValue) {
	c.sess.counters.ValuesReceived++

	done, ok := c.fetcher.addValue(p)
	if !ok {
		c.applyLiveUpdate(p)
		return
	}
	if done {
		c.completeFetch()
	}
}

// applyLiveUpdate keeps a ready session in step with values the vehicle
// broadcasts after a change. The cache is not rewritten.
func (c *Coordinator) applyLiveUpdate(p *mavlink.ParamValue) {
	if c.state() != StateReady || c.sess.missing {
		metrics.IgnoredMessagesTotal.WithLabelValues("param_value").Inc()
		return
	}
	if _, known := c.sess.parameters[p.ParamID]; !known {
		metrics.IgnoredMessagesTotal.WithLabelValues("param_value").Inc()
		return
	}

	c.sess.parameters[p.ParamID] = p.Value
	c.mu.Lock()
	if c.published != nil {
		c.published[p.ParamID] = p.Value
	}
	c.mu.Unlock()
}

func (c *Coordinator) onFileData(d *mavlink.FileTransferData) {
	if !c.fetcher.addFile(d) {
		metrics.IgnoredMessagesTotal.WithLabelValues("file_transfer").Inc()
		return
	}
	c.completeFetch()
}

// completeFetch stores the fetched set and makes the session ready. The
// cache hash is the vehicle's own digest when one was received this cycle.
func (c *Coordinator) completeFetch() {
	params := c.fetcher.result()
	c.sess.parameters = params
	metrics.FetchTotal.WithLabelValues(FetchCompleted.String(), c.fetcher.strategy.String()).Inc()

	hash := HashParams(params)
	if c.sess.liveHash != nil {
		hash = *c.sess.liveHash
	}
	entry := &cache.Entry{
		Key:       c.sess.key,
		Hash:      hash,
		Params:    maps.Clone(params),
		UpdatedAt: c.clock.Now(),
	}
	if err := c.cfg.Store.Save(c.loopCtx, c.sess.key, entry); err != nil {
		c.logger.Error(err, "Failed to write parameter cache")
	} else {
		c.logger.Debug("Parameter cache written", "hash", hash, "count", len(params))
	}

	c.fire(EventFetchComplete)
}

func (c *Coordinator) onTimeout(kind timerKind, epoch uint64) {
	switch kind {
	case timerHashCheck:
		if !c.negotiator.expire(epoch) {
			return
		}
		metrics.HashCheckTotal.WithLabelValues(HashCheckNoResponse.String()).Inc()
		c.logger.Info("Hash check timed out, falling back to full fetch")
		c.fire(EventHashTimeout)

	case timerFetch:
		if !c.fetcher.expire(epoch) {
			return
		}
		received, expected := c.fetcher.progress()
		metrics.FetchTotal.WithLabelValues(FetchTimedOut.String(), c.fetcher.strategy.String()).Inc()
		c.logger.Warn("Parameter fetch timed out", "received", received, "expected", expected)
		c.fire(EventFetchTimeout)
	}
}

// onRefresh clears the counters and starts a new cycle. Links that never
// acquire parameters are re-announced as ready with parameters missing and
// no traffic is sent. A refresh during a full fetch leaves the fetch alone.
func (c *Coordinator) onRefresh() {
	c.sess.counters = Counters{}

	if event, ok := c.skipEvent(); ok {
		c.beginCycle()
		c.logger.Info("Manual parameter refresh without acquisition", "cycle", c.sess.cycle, "linkClass", c.sess.linkClass.String())
		if c.state() == StateReady {
			c.announceReady(event)
			return
		}
		c.fire(event)
		return
	}

	err := c.fsm.Event(c.loopCtx, EventRefresh)
	if errors.Is(err, errFetchInFlight) {
		c.logger.Info("Refresh ignored, full fetch already in flight")
		return
	}
	if err = fsmutil.IgnoreNoTransition(err); err != nil {
		c.logger.Error(err, "Parameter session transition failed", "event", EventRefresh, "state", c.state())
	}
}

// skipEvent reports the event that makes a session ready without acquiring
// parameters, if the link class calls for one.
func (c *Coordinator) skipEvent() (string, bool) {
	switch c.sess.linkClass {
	case LinkHighLatency:
		return EventSkipHighLatency, true
	case LinkLogReplay:
		return EventSkipLogReplay, true
	}
	return "", false
}

func (c *Coordinator) beginCycle() {
	c.sess.cycle++
	c.sess.cycleStart = c.clock.Now()
	c.sess.liveHash = nil
}

func (c *Coordinator) announceReady(event string) {
	s := c.sess
	s.missing = event == EventSkipHighLatency || event == EventSkipLogReplay
	if s.readyCycle == s.cycle {
		return
	}
	s.readyCycle = s.cycle

	path := "fetch"
	switch event {
	case EventHashHit:
		path = "hash_hit"
	case EventSkipHighLatency, EventSkipLogReplay:
		path = "skip"
	}
	metrics.ReadyLatency.WithLabelValues(path).Observe(c.clock.Since(s.cycleStart).Seconds())
	c.logger.Info("Parameters ready", "path", path, "missing", s.missing, "count", len(s.parameters), "cycle", s.cycle)

	c.mu.Lock()
	c.published = maps.Clone(s.parameters)
	c.mu.Unlock()
	c.publishSnapshot()

	missing := c.newEvent(EventParametersMissing, StateReady, StateReady)
	missing.Missing = s.missing
	c.subs.publish(missing)
	c.subs.publish(c.newEvent(EventParametersReady, StateReady, StateReady))
}

func (c *Coordinator) fire(name string) {
	if err := fsmutil.IgnoreNoTransition(c.fsm.Event(c.loopCtx, name)); err != nil {
		c.logger.Error(err, "Parameter session transition failed", "event", name, "state", c.state())
	}
}

func (c *Coordinator) send(p mavlink.Payload) error {
	msg := &mavlink.Message{SystemID: c.cfg.SystemID, ComponentID: c.cfg.ComponentID, Payload: p}
	metrics.LinkMessagesTotal.WithLabelValues("out", msg.Type().String()).Inc()
	if err := c.cfg.Sender.Send(c.loopCtx, msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type(), err)
	}
	return nil
}

func (c *Coordinator) state() State {
	return State(c.fsm.Current())
}

func (c *Coordinator) trackState(from, to State) {
	if from != "" {
		metrics.Sessions.WithLabelValues(string(from)).Dec()
	}
	metrics.Sessions.WithLabelValues(string(to)).Inc()
}

func (c *Coordinator) newEvent(t EventType, from, to State) Event {
	return Event{
		Type:      t,
		Key:       c.sess.key,
		SessionID: c.sess.id,
		From:      from,
		To:        to,
		Missing:   c.sess.missing,
		Cycle:     c.sess.cycle,
		Time:      c.clock.Now(),
	}
}

func (c *Coordinator) publishSnapshot() {
	s := c.sess
	snap := Snapshot{
		Key:         s.key,
		SessionID:   s.id,
		LinkClass:   s.linkClass.String(),
		State:       c.state(),
		Missing:     s.missing,
		Cycle:       s.cycle,
		ParamCount:  len(s.parameters),
		ConnectedAt: s.connectedAt,
		Counters:    s.counters,
	}
	snap.Ready = snap.State == StateReady && s.readyCycle == s.cycle
	if s.cachedHash != nil {
		h := *s.cachedHash
		snap.CachedHash = &h
	}
	if s.liveHash != nil {
		h := *s.liveHash
		snap.LiveHash = &h
	}

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
}
