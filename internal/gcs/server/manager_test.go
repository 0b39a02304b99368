package server

import (
	"context"
	"errors"
	"testing"
	"time"
)

type serverFunc func(ctx context.Context) error

func (f serverFunc) Start(ctx context.Context) error { return f(ctx) }

func TestManagerStopsAllOnFailure(t *testing.T) {
	boom := errors.New("boom")
	stopped := make(chan struct{})

	m := NewManager(
		serverFunc(func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return nil
		}),
	)
	m.Add(serverFunc(func(context.Context) error { return boom }))

	if err := m.Start(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v, want %v", err, boom)
	}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("sibling server was not cancelled")
	}
}
