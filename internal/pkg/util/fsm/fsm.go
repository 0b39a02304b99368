package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error returning callback to fsm.Callback. A non-nil
// error is stored on the event and returned from FSM.Event. It does not stop
// the transition; use WrapGuard for that.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// WrapGuard is WrapEvent for before_ and leave_ callbacks. A non-nil error
// cancels the transition and FSM.Event returns it wrapped in a
// fsm.CanceledError.
func WrapGuard(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Cancel(err)
		}
	}
}

// IgnoreNoTransition drops the errors looplab/fsm returns when an event does
// not change state or is cancelled without a reason.
func IgnoreNoTransition(err error) error {
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	var canceled fsm.CanceledError
	if errors.As(err, &canceled) && canceled.Err == nil {
		return nil
	}
	return err
}
