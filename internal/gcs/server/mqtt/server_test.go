package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/autopeer-io/paramsync/internal/link"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
	pkgmqtt "github.com/autopeer-io/paramsync/pkg/mqtt"
)

type fakeClient struct {
	mu           sync.Mutex
	handlers     map[string]pkgmqtt.MessageHandler
	disconnected bool
}

func (f *fakeClient) Start(context.Context) error { return nil }

func (f *fakeClient) Disconnect(context.Context) {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
}

func (f *fakeClient) Publish(context.Context, string, int, bool, []byte) error { return nil }

func (f *fakeClient) Subscribe(_ context.Context, topic string, _ int, h pkgmqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = map[string]pkgmqtt.MessageHandler{}
	}
	f.handlers[topic] = h
	return nil
}

func (f *fakeClient) Unsubscribe(context.Context, string) error { return nil }

func (f *fakeClient) AwaitConnection(context.Context) error { return nil }

func (f *fakeClient) IsConnected() bool { return true }

func (f *fakeClient) handler(topic string) pkgmqtt.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[topic]
}

func TestServerDeliversUplink(t *testing.T) {
	client := &fakeClient{}
	got := make(chan *mavlink.Message, 1)

	srv := NewServer(client, "root", "", func(link.Link) link.Handler {
		return func(_ context.Context, msg *mavlink.Message) { got <- msg }
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	const upTopic = "root/param/up/+"
	deadline := time.Now().Add(time.Second)
	for client.handler(upTopic) == nil {
		if time.Now().After(deadline) {
			t.Fatal("uplink subscription not made")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sent := &mavlink.Message{SystemID: 3, ComponentID: 1, Payload: &mavlink.Heartbeat{Autopilot: mavlink.AutopilotPX4}}
	data, err := mavlink.Marshal(sent)
	if err != nil {
		t.Fatal(err)
	}
	client.handler(upTopic)(ctx, "root/param/up/3", data)

	select {
	case msg := <-got:
		if msg.SystemID != 3 || msg.Type() != mavlink.MsgHeartbeat {
			t.Errorf("got %v, want heartbeat from 3", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if !client.disconnected {
		t.Error("client not disconnected on exit")
	}
}
