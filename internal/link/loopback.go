package link

import (
	"context"
	"sync"

	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

var _ Link = (*Loopback)(nil)

// Loopback is one end of an in-process link. Messages go through the CBOR
// codec and are delivered asynchronously, in order, to the peer's handler.
type Loopback struct {
	name string
	in   chan []byte
	peer *Loopback

	closeOnce sync.Once
	done      chan struct{}
}

// NewLoopbackPair returns two connected ends. buffer bounds the number of
// undelivered messages per direction.
func NewLoopbackPair(buffer int) (*Loopback, *Loopback) {
	if buffer <= 0 {
		buffer = 1024
	}
	a := &Loopback{name: "loopback-a", in: make(chan []byte, buffer), done: make(chan struct{})}
	b := &Loopback{name: "loopback-b", in: make(chan []byte, buffer), done: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

func (l *Loopback) Name() string { return l.name }

func (l *Loopback) Send(ctx context.Context, msg *mavlink.Message) error {
	data, err := mavlink.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-l.done:
		return ErrClosed
	case <-l.peer.done:
		return ErrClosed
	default:
	}

	select {
	case l.peer.in <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.peer.done:
		return ErrClosed
	}
}

func (l *Loopback) Run(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.done:
			return nil
		case data := <-l.in:
			msg, err := mavlink.Unmarshal(data)
			if err != nil {
				log.Warn("Dropping undecodable loopback message", "link", l.name, "error", err.Error())
				continue
			}
			h(ctx, msg)
		}
	}
}

// Close stops delivery on this end. Sends towards it fail with ErrClosed.
func (l *Loopback) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}
