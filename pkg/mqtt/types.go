package mqtt

import (
	"context"
)

// QoSAtLeastOnce is requested for parameter traffic, presence and the will.
const QoSAtLeastOnce = 1

// MessageHandler receives one PUBLISH. topic is the concrete topic, never the
// $share/<group>/ filter it was matched by.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is the broker session shared by the ground station links and the
// vehicle agent. A last will, when configured, is registered on every
// CONNECT, including reconnects.
type Client interface {
	// Start begins connecting in the background. Use AwaitConnection to wait.
	Start(ctx context.Context) error

	// Disconnect closes the session without triggering the last will.
	Disconnect(ctx context.Context)

	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers handler for filter. Shared subscriptions
	// ($share/<group>/...) are dispatched on the filter without the prefix.
	// Subscriptions are replayed after a reconnect.
	Subscribe(ctx context.Context, filter string, qos int, handler MessageHandler) error

	Unsubscribe(ctx context.Context, filter string) error

	// AwaitConnection blocks until the first CONNACK or ctx is done.
	AwaitConnection(ctx context.Context) error

	IsConnected() bool
}
