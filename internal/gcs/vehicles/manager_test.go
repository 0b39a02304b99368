package vehicles

import (
	"context"
	"errors"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/paramsync/internal/link"
	"github.com/autopeer-io/paramsync/internal/paramsync"
	"github.com/autopeer-io/paramsync/internal/paramsync/cache"
	"github.com/autopeer-io/paramsync/internal/vehiclesim"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

type fixture struct {
	manager *Manager
	vehicle *vehiclesim.Vehicle
	events  chan paramsync.Event
}

func newFixture(t *testing.T, cfg Config, vc vehiclesim.Config) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if cfg.Store == nil {
		cfg.Store = cache.NewMemoryStore()
	}
	if cfg.Timeouts == nil {
		cfg.Timeouts = NewTimeouts(150*time.Millisecond, 500*time.Millisecond)
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{manager: m, events: make(chan paramsync.Event, 64)}
	m.Subscribe(func(ev paramsync.Event) {
		if ev.Type == paramsync.EventParametersReady {
			f.events <- ev
		}
	})

	gcs, veh := link.NewLoopbackPair(0)
	f.vehicle = vehiclesim.New(vc, veh)
	go func() { _ = veh.Run(ctx, f.vehicle.Handle) }()
	go func() { _ = gcs.Run(ctx, m.Handler(gcs)) }()
	go func() { _ = m.Start(ctx) }()
	eventually(t, m.Running)

	return f
}

func (f *fixture) awaitReady(t *testing.T) paramsync.Event {
	t.Helper()
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("vehicle never became ready, sessions %+v", f.manager.Sessions())
		return paramsync.Event{}
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestHeartbeatOpensSession(t *testing.T) {
	f := newFixture(t, Config{}, vehiclesim.Config{SystemID: 4, Autopilot: mavlink.AutopilotPX4})
	if err := f.vehicle.SendHeartbeat(context.Background()); err != nil {
		t.Fatal(err)
	}

	ev := f.awaitReady(t)
	if ev.Key != f.vehicle.Key() {
		t.Errorf("ready for %s, want %s", ev.Key, f.vehicle.Key())
	}

	// Further heartbeats only refresh liveness.
	_ = f.vehicle.SendHeartbeat(context.Background())
	sessions := f.manager.Sessions()
	if len(sessions) != 1 || sessions[0].State != paramsync.StateReady || sessions[0].SessionID != ev.SessionID {
		t.Errorf("Sessions() = %+v", sessions)
	}

	snap, params, err := f.manager.Session(f.vehicle.Key())
	if err != nil || !snap.Ready || len(params) != len(f.vehicle.Params()) {
		t.Errorf("Session() = %+v, %d params, %v", snap, len(params), err)
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, Config{}, vehiclesim.Config{SystemID: 4, Autopilot: mavlink.AutopilotPX4})
	_ = f.vehicle.SendHeartbeat(context.Background())
	f.awaitReady(t)
	f.vehicle.ClearReceivedCounts()

	if err := f.manager.Refresh(f.vehicle.Key()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	f.awaitReady(t)
	if err := f.manager.RefreshAll(); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	f.awaitReady(t)

	if n := f.vehicle.ReceivedCount(mavlink.MsgParamRequestList); n != 2 {
		t.Errorf("list requests = %d, want 2", n)
	}
	if n := f.vehicle.HashCheckCount(); n != 0 {
		t.Errorf("hash checks = %d, want 0", n)
	}

	unknown := paramsync.VehicleKey{SystemID: 99, ComponentID: 1, Autopilot: mavlink.AutopilotPX4}
	if err := f.manager.Refresh(unknown); !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("Refresh(unknown) error = %v, want ErrVehicleNotFound", err)
	}
}

func TestOfflineHeartbeatDisconnects(t *testing.T) {
	f := newFixture(t, Config{}, vehiclesim.Config{SystemID: 4, Autopilot: mavlink.AutopilotPX4})
	_ = f.vehicle.SendHeartbeat(context.Background())
	f.awaitReady(t)

	offline := f.vehicle.Heartbeat()
	offline.Payload.(*mavlink.Heartbeat).Offline = true
	f.manager.HandleMessage(nil, offline)

	if n := len(f.manager.Sessions()); n != 0 {
		t.Errorf("%d sessions after offline heartbeat, want 0", n)
	}
	if err := f.manager.Disconnect(f.vehicle.Key()); !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("Disconnect() error = %v, want ErrVehicleNotFound", err)
	}
}

func TestLinkLost(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	f := newFixture(t,
		Config{Clock: clk, LinkLostTimeout: 10 * time.Second},
		vehiclesim.Config{SystemID: 4, Autopilot: mavlink.AutopilotGeneric})
	_ = f.vehicle.SendHeartbeat(context.Background())
	eventually(t, func() bool { return len(f.manager.Sessions()) == 1 })

	clk.Step(5 * time.Second)
	clk.Step(5 * time.Second)
	eventually(t, func() bool { return len(f.manager.Sessions()) == 0 })
}

func TestDeleteCache(t *testing.T) {
	store := cache.NewMemoryStore()
	f := newFixture(t, Config{Store: store}, vehiclesim.Config{SystemID: 4, Autopilot: mavlink.AutopilotPX4})
	_ = f.vehicle.SendHeartbeat(context.Background())
	f.awaitReady(t)

	if err := f.manager.DeleteCache(context.Background(), f.vehicle.Key()); err != nil {
		t.Fatalf("DeleteCache() error = %v", err)
	}
	if err := f.manager.DeleteCache(context.Background(), f.vehicle.Key()); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("second DeleteCache() error = %v, want cache.ErrNotFound", err)
	}
}

func TestTimeoutsSet(t *testing.T) {
	tm := NewTimeouts(0, 0)
	if got := tm.Get(); got != paramsync.DefaultTimeouts() {
		t.Errorf("Get() = %+v, want defaults", got)
	}
	tm.Set(2*time.Second, 0)
	if got := tm.Get(); got.HashCheck != 2*time.Second || got.Fetch != paramsync.DefaultFetchTimeout {
		t.Errorf("Get() = %+v", got)
	}
}
