// Package vehicles tracks connected vehicles and owns one parameter session
// per vehicle.
package vehicles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/paramsync/internal/link"
	"github.com/autopeer-io/paramsync/internal/paramsync"
	"github.com/autopeer-io/paramsync/internal/paramsync/cache"
	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

// ErrVehicleNotFound is returned for operations on a vehicle with no session.
var ErrVehicleNotFound = errors.New("vehicle not connected")

// DefaultLinkLostTimeout disconnects vehicles silent for this long.
const DefaultLinkLostTimeout = 10 * time.Second

type Config struct {
	Store    cache.Store
	Timeouts *Timeouts
	// LinkLostTimeout disconnects vehicles whose heartbeats stop. Zero uses the default.
	LinkLostTimeout time.Duration
	// LogReplay marks every session as a log replay.
	LogReplay bool

	SystemID    uint8
	ComponentID uint8

	Clock clock.WithTickerAndDelayedExecution
}

type vehicle struct {
	coord    *paramsync.Coordinator
	link     link.Link
	lastSeen time.Time
}

// Manager replaces a global vehicle registry: it is created once per process
// and passed to whoever needs it.
type Manager struct {
	cfg    Config
	clock  clock.WithTickerAndDelayedExecution
	logger log.Logger

	// connectMu serialises session creation across links.
	connectMu sync.Mutex

	mu       sync.Mutex
	ctx      context.Context
	vehicles map[uint8]*vehicle // by system id
	subs     []paramsync.Subscriber
	running  bool
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("vehicles: cache store is required")
	}
	if cfg.Timeouts == nil {
		cfg.Timeouts = NewTimeouts(0, 0)
	}
	if cfg.LinkLostTimeout <= 0 {
		cfg.LinkLostTimeout = DefaultLinkLostTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}

	return &Manager{
		cfg:      cfg,
		clock:    cfg.Clock,
		logger:   log.WithName("vehicles"),
		ctx:      context.Background(),
		vehicles: make(map[uint8]*vehicle),
	}, nil
}

// Subscribe registers fn for the events of every current and future session.
// It must be called before Start.
func (m *Manager) Subscribe(fn paramsync.Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Start runs the link-lost watchdog until ctx is done, then disconnects every vehicle.
func (m *Manager) Start(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.cfg.LinkLostTimeout / 2)
	defer ticker.Stop()

	m.mu.Lock()
	m.ctx = ctx
	m.running = true
	m.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			m.disconnectAll()
			return nil
		case <-ticker.C():
			m.sweep()
		}
	}
}

// Running reports whether Start is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Handler returns the inbound handler for messages arriving on l.
func (m *Manager) Handler(l link.Link) link.Handler {
	return func(_ context.Context, msg *mavlink.Message) {
		m.HandleMessage(l, msg)
	}
}

// HandleMessage routes msg to its vehicle's session. Heartbeats from unknown
// vehicles open a session on l.
func (m *Manager) HandleMessage(l link.Link, msg *mavlink.Message) {
	if hb, ok := msg.Payload.(*mavlink.Heartbeat); ok {
		m.onHeartbeat(l, msg, hb)
		return
	}

	m.mu.Lock()
	v := m.vehicles[msg.SystemID]
	m.mu.Unlock()
	if v == nil {
		return
	}
	if err := v.coord.HandleMessage(msg); err != nil {
		m.logger.Debug("Dropping message for closed session", "system", msg.SystemID, "error", err.Error())
	}
}

func (m *Manager) onHeartbeat(l link.Link, msg *mavlink.Message, hb *mavlink.Heartbeat) {
	key := paramsync.VehicleKey{SystemID: msg.SystemID, ComponentID: msg.ComponentID, Autopilot: hb.Autopilot}

	if hb.Offline {
		if err := m.Disconnect(key); err == nil {
			m.logger.Info("Vehicle went offline", "vehicle", key.String())
		}
		return
	}

	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	m.mu.Lock()
	v := m.vehicles[key.SystemID]
	if v != nil && v.coord.Key() == key {
		v.lastSeen = m.clock.Now()
		m.mu.Unlock()
		return
	}
	var replaced *vehicle
	if v != nil {
		// Same system id, different firmware or component: a new vehicle.
		replaced = v
		delete(m.vehicles, key.SystemID)
	}
	ctx := m.ctx
	subs := append([]paramsync.Subscriber(nil), m.subs...)
	m.mu.Unlock()

	if replaced != nil {
		replaced.coord.Disconnect()
	}

	coord, err := paramsync.NewCoordinator(paramsync.Config{
		Key:         key,
		LinkClass:   paramsync.ClassifyLink(hb, m.cfg.LogReplay),
		Sender:      l,
		Store:       m.cfg.Store,
		Timeouts:    m.cfg.Timeouts.Get,
		Clock:       m.clock,
		SystemID:    m.cfg.SystemID,
		ComponentID: m.cfg.ComponentID,
	})
	if err != nil {
		m.logger.Error(err, "Failed to create parameter session", "vehicle", key.String())
		return
	}
	for _, fn := range subs {
		coord.Subscribe(fn)
	}

	m.mu.Lock()
	m.vehicles[key.SystemID] = &vehicle{coord: coord, link: l, lastSeen: m.clock.Now()}
	m.mu.Unlock()

	m.logger.Info("Vehicle connected", "vehicle", key.String(), "link", l.Name(), "session", coord.SessionID())
	if err := coord.Connect(ctx); err != nil {
		m.logger.Error(err, "Failed to start parameter session", "vehicle", key.String())
	}
}

func (m *Manager) lookup(key paramsync.VehicleKey) (*vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.vehicles[key.SystemID]
	if v == nil || v.coord.Key() != key {
		return nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, key)
	}
	return v, nil
}

// Disconnect ends the session of key and cancels its timers.
func (m *Manager) Disconnect(key paramsync.VehicleKey) error {
	m.mu.Lock()
	v := m.vehicles[key.SystemID]
	if v == nil || v.coord.Key() != key {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrVehicleNotFound, key)
	}
	delete(m.vehicles, key.SystemID)
	m.mu.Unlock()

	v.coord.Disconnect()
	return nil
}

// Refresh forces a full parameter fetch for key.
func (m *Manager) Refresh(key paramsync.VehicleKey) error {
	v, err := m.lookup(key)
	if err != nil {
		return err
	}
	return v.coord.RefreshAllParameters()
}

// RefreshAll forces a full parameter fetch for every connected vehicle.
func (m *Manager) RefreshAll() error {
	var errs []error
	for _, v := range m.snapshotVehicles() {
		if err := v.coord.RefreshAllParameters(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", v.coord.Key(), err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// Sessions returns a snapshot of every session ordered by vehicle key.
func (m *Manager) Sessions() []paramsync.Snapshot {
	vs := m.snapshotVehicles()
	out := make([]paramsync.Snapshot, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.coord.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Session returns the snapshot and parameters of one vehicle.
func (m *Manager) Session(key paramsync.VehicleKey) (paramsync.Snapshot, map[string]float64, error) {
	v, err := m.lookup(key)
	if err != nil {
		return paramsync.Snapshot{}, nil, err
	}
	return v.coord.Snapshot(), v.coord.Parameters(), nil
}

// DeleteCache removes the stored parameters of key. A connected session is
// not affected until its next sync cycle.
func (m *Manager) DeleteCache(ctx context.Context, key paramsync.VehicleKey) error {
	return m.cfg.Store.Delete(ctx, key)
}

func (m *Manager) snapshotVehicles() []*vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, v)
	}
	return out
}

func (m *Manager) sweep() {
	now := m.clock.Now()
	var stale []*vehicle

	m.mu.Lock()
	for id, v := range m.vehicles {
		if now.Sub(v.lastSeen) >= m.cfg.LinkLostTimeout {
			stale = append(stale, v)
			delete(m.vehicles, id)
		}
	}
	m.mu.Unlock()

	for _, v := range stale {
		m.logger.Warn("Vehicle link lost", "vehicle", v.coord.Key().String(), "timeout", m.cfg.LinkLostTimeout.String())
		v.coord.Disconnect()
	}
}

func (m *Manager) disconnectAll() {
	m.mu.Lock()
	vs := m.vehicles
	m.vehicles = make(map[uint8]*vehicle)
	m.running = false
	m.mu.Unlock()

	for _, v := range vs {
		v.coord.Disconnect()
	}
}
