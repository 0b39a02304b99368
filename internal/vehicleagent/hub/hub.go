// Package hub manages the vehicle agent's broker session and its retained
// presence announcement.
package hub

import (
	"context"
	"time"

	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
	"github.com/autopeer-io/paramsync/pkg/mqtt"
)

type Hub struct {
	mc          mqtt.Client
	onlineTopic string
}

func New(client mqtt.Client, onlineTopic string) *Hub {
	return &Hub{
		mc:          client,
		onlineTopic: onlineTopic,
	}
}

// Announce publishes hb as the retained presence of the vehicle. An online
// heartbeat overwrites the last will left by a previous crash.
func (b *Hub) Announce(ctx context.Context, hb *mavlink.Message) error {
	payload, err := mavlink.Marshal(hb)
	if err != nil {
		return err
	}
	return b.mc.Publish(ctx, b.onlineTopic, mqtt.QoSAtLeastOnce, true, payload)
}

func (b *Hub) IsConnected() bool {
	return b.mc.IsConnected()
}

func (b *Hub) Start(ctx context.Context) error {
	if err := b.mc.Start(ctx); err != nil {
		return err
	}

	log.Info("Waiting for MQTT connection...")
	return b.mc.AwaitConnection(ctx)
}

func (b *Hub) Stop() {
	log.Info("Disconnecting MQTT client...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b.mc.Disconnect(ctx)
}
