package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
)

func TestWrapEvent(t *testing.T) {
	boom := errors.New("boom")
	f := fsm.NewFSM("a",
		fsm.Events{{Name: "go", Src: []string{"a"}, Dst: "b"}},
		fsm.Callbacks{
			"enter_b": WrapEvent(func(_ context.Context, _ *fsm.Event) error { return boom }),
		},
	)

	err := f.Event(context.Background(), "go")
	if !errors.Is(err, boom) {
		t.Fatalf("Event() error = %v, want %v", err, boom)
	}
	if f.Current() != "b" {
		t.Errorf("Current() = %q, want b", f.Current())
	}
}

func TestWrapGuard(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		callback string
	}{
		{"before event", "before_go"},
		{"leave state", "leave_a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fsm.NewFSM("a",
				fsm.Events{{Name: "go", Src: []string{"a"}, Dst: "b"}},
				fsm.Callbacks{
					tt.callback: WrapGuard(func(_ context.Context, _ *fsm.Event) error { return boom }),
				},
			)

			err := f.Event(context.Background(), "go")
			if !errors.Is(err, boom) {
				t.Fatalf("Event() error = %v, want %v", err, boom)
			}
			var canceled fsm.CanceledError
			if !errors.As(err, &canceled) {
				t.Errorf("Event() error = %T, want fsm.CanceledError", err)
			}
			if f.Current() != "a" {
				t.Errorf("Current() = %q, want a", f.Current())
			}
		})
	}
}

func TestWrapGuardPassesOnNil(t *testing.T) {
	f := fsm.NewFSM("a",
		fsm.Events{{Name: "go", Src: []string{"a"}, Dst: "b"}},
		fsm.Callbacks{
			"before_go": WrapGuard(func(_ context.Context, _ *fsm.Event) error { return nil }),
		},
	)
	if err := f.Event(context.Background(), "go"); err != nil {
		t.Fatalf("Event() error = %v", err)
	}
	if f.Current() != "b" {
		t.Errorf("Current() = %q, want b", f.Current())
	}
}

func TestIgnoreNoTransition(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no transition", fsm.NoTransitionError{}, nil},
		{"canceled without reason", fsm.CanceledError{}, nil},
		{"other", boom, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IgnoreNoTransition(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("IgnoreNoTransition() = %v, want %v", got, tt.want)
			}
		})
	}
}
