package vehicleagent

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/paramsync/internal/gcs/vehicles"
	"github.com/autopeer-io/paramsync/internal/link"
	"github.com/autopeer-io/paramsync/internal/paramsync"
	"github.com/autopeer-io/paramsync/internal/paramsync/cache"
	"github.com/autopeer-io/paramsync/internal/vehicleagent/hub"
	"github.com/autopeer-io/paramsync/internal/vehiclesim"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
	pkgmqtt "github.com/autopeer-io/paramsync/pkg/mqtt"
)

type publish struct {
	topic  string
	retain bool
	msg    *mavlink.Message
}

type fakeClient struct {
	mu        sync.Mutex
	published []publish
}

func (f *fakeClient) Start(context.Context) error { return nil }

func (f *fakeClient) Disconnect(context.Context) {}

func (f *fakeClient) Publish(_ context.Context, topic string, _ int, retain bool, payload []byte) error {
	msg, err := mavlink.Unmarshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publish{topic: topic, retain: retain, msg: msg})
	return nil
}

func (f *fakeClient) Subscribe(context.Context, string, int, pkgmqtt.MessageHandler) error { return nil }

func (f *fakeClient) Unsubscribe(context.Context, string) error { return nil }

func (f *fakeClient) AwaitConnection(context.Context) error { return nil }

func (f *fakeClient) IsConnected() bool { return true }

func (f *fakeClient) snapshot() []publish {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publish(nil), f.published...)
}

func TestAgentSyncsWithGroundStation(t *testing.T) {
	gcsEnd, vehicleEnd := link.NewLoopbackPair(0)

	m, err := vehicles.NewManager(vehicles.Config{
		Store:    cache.NewMemoryStore(),
		Timeouts: vehicles.NewTimeouts(200*time.Millisecond, time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	ready := make(chan paramsync.Event, 4)
	m.Subscribe(func(e paramsync.Event) {
		if e.Type == paramsync.EventParametersReady {
			ready <- e
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Start(ctx) }()
	go func() { _ = gcsEnd.Run(ctx, m.Handler(gcsEnd)) }()

	v := vehiclesim.New(vehiclesim.Config{SystemID: 7, Autopilot: mavlink.AutopilotPX4}, vehicleEnd)
	agent := NewAgent(v, vehicleEnd, nil, 50*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	select {
	case e := <-ready:
		if e.Key != v.Key() {
			t.Errorf("ready for %v, want %v", e.Key, v.Key())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("parameters never became ready")
	}

	_, params, err := m.Session(v.Key())
	if err != nil {
		t.Fatal(err)
	}
	if len(params) != len(vehiclesim.DefaultParams()) {
		t.Errorf("ground station holds %d params, want %d", len(params), len(vehiclesim.DefaultParams()))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("agent did not stop")
	}
}

func TestAgentAnnouncesPresence(t *testing.T) {
	_, vehicleEnd := link.NewLoopbackPair(0)
	client := &fakeClient{}

	v := vehiclesim.New(vehiclesim.Config{SystemID: 3, Autopilot: mavlink.AutopilotArduPilot}, vehicleEnd)
	onlineTopic := link.OnlineTopic("root", 3)
	agent := NewAgent(v, vehicleEnd, hub.New(client, onlineTopic), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for len(client.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no presence announced")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := client.snapshot()
	if len(got) != 2 {
		t.Fatalf("published %d messages, want 2", len(got))
	}
	for i, wantOffline := range []bool{false, true} {
		p := got[i]
		hb, ok := p.msg.Payload.(*mavlink.Heartbeat)
		if !ok || p.topic != onlineTopic || !p.retain {
			t.Fatalf("publish %d = %+v, want retained heartbeat on %s", i, p, onlineTopic)
		}
		if hb.Offline != wantOffline {
			t.Errorf("publish %d offline = %v, want %v", i, hb.Offline, wantOffline)
		}
	}
}

func TestAgentBeatsOnTicker(t *testing.T) {
	gcsEnd, vehicleEnd := link.NewLoopbackPair(0)
	clk := testingclock.NewFakeClock(time.Now())

	v := vehiclesim.New(vehiclesim.Config{SystemID: 5, Autopilot: mavlink.AutopilotPX4}, vehicleEnd)
	agent := NewAgent(v, vehicleEnd, nil, time.Second)
	agent.clock = clk

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var beats atomic.Int32
	go func() {
		_ = gcsEnd.Run(ctx, func(_ context.Context, msg *mavlink.Message) {
			if _, ok := msg.Payload.(*mavlink.Heartbeat); ok {
				beats.Add(1)
			}
		})
	}()
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	waitFor := func(want int32) {
		t.Helper()
		deadline := time.Now().Add(time.Second)
		for beats.Load() < want {
			if time.Now().After(deadline) {
				t.Fatalf("heartbeats = %d, want %d", beats.Load(), want)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	waitFor(1)
	for !clk.HasWaiters() {
		time.Sleep(time.Millisecond)
	}
	clk.Step(time.Second)
	waitFor(2)

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
