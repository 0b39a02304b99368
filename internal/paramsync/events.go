package paramsync

import (
	"sync"
	"time"
)

// EventType names a coordinator notification.
type EventType string

const (
	// EventStateChanged is published on every transition.
	EventStateChanged EventType = "StateChanged"
	// EventParametersMissing carries whether parameter acquisition was skipped.
	// It precedes EventParametersReady.
	EventParametersMissing EventType = "ParametersMissing"
	// EventParametersReady is published at most once per sync cycle.
	EventParametersReady EventType = "ParametersReady"
)

// Event is delivered to subscribers on the coordinator goroutine.
type Event struct {
	Type      EventType
	Key       VehicleKey
	SessionID string
	From, To  State
	Missing   bool
	Cycle     int
	Time      time.Time
}

// Subscriber must not block and must not call Disconnect.
type Subscriber func(Event)

type broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Subscriber
}

func (b *broadcaster) subscribe(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]Subscriber)
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
