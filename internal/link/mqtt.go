package link

import (
	"context"
	"fmt"
	"strconv"

	"github.com/autopeer-io/paramsync/internal/pkg/metrics"
	"github.com/autopeer-io/paramsync/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
	"github.com/autopeer-io/paramsync/pkg/mqtt"
	"github.com/autopeer-io/paramsync/pkg/mqtt/topic"
)

var _ Link = (*MQTTLink)(nil)

// QoS used for parameter traffic. Lost PARAM_VALUEs cost a whole fetch.
const paramQoS = mqtt.QoSAtLeastOnce

// MQTTLink carries link messages over an MQTT broker. On the ground station
// side it listens to every vehicle and addresses downlink messages by target
// system. On the vehicle side it is bound to one system id.
type MQTTLink struct {
	client  mqtt.Client
	topics  *topic.Builder
	shared  *topic.Builder
	vehicle string // empty on the ground station side
}

// NewGCSMQTTLink returns the ground station end. When group is set the
// uplink subscriptions are shared between replicas.
func NewGCSMQTTLink(client mqtt.Client, root, group string) *MQTTLink {
	b := topic.NewBuilder(root)
	shared := b
	if group != "" {
		shared = b.Shared(group)
	}
	return &MQTTLink{client: client, topics: b, shared: shared}
}

// NewVehicleMQTTLink returns the end used by the vehicle with systemID.
func NewVehicleMQTTLink(client mqtt.Client, root string, systemID uint8) *MQTTLink {
	b := topic.NewBuilder(root)
	return &MQTTLink{client: client, topics: b, shared: b, vehicle: strconv.Itoa(int(systemID))}
}

func (l *MQTTLink) Name() string {
	if l.vehicle != "" {
		return "mqtt-vehicle-" + l.vehicle
	}
	return "mqtt-gcs"
}

// Run subscribes and blocks until ctx is done. The client resubscribes by
// itself after reconnects.
func (l *MQTTLink) Run(ctx context.Context, h Handler) error {
	var filters []string
	if l.vehicle == "" {
		filters = []string{l.shared.BuildWildcard(paths.ParamUp), l.shared.BuildWildcard(paths.Online)}
	} else {
		filters = []string{l.topics.Build(paths.ParamDown, l.vehicle)}
	}

	for _, f := range filters {
		if err := l.client.Subscribe(ctx, f, paramQoS, l.onPublish(h)); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", f, err)
		}
		log.Info("Link subscribed", "link", l.Name(), "topic", f)
	}

	<-ctx.Done()

	unsubCtx := context.WithoutCancel(ctx)
	for _, f := range filters {
		if err := l.client.Unsubscribe(unsubCtx, f); err != nil {
			log.Debug("Failed to unsubscribe", "topic", f, "error", err.Error())
		}
	}
	return nil
}

func (l *MQTTLink) onPublish(h Handler) mqtt.MessageHandler {
	return func(ctx context.Context, t string, payload []byte) {
		msg, err := mavlink.Unmarshal(payload)
		if err != nil {
			metrics.IgnoredMessagesTotal.WithLabelValues("undecodable").Inc()
			log.Warn("Dropping undecodable link message", "topic", t, "error", err.Error())
			return
		}
		h(ctx, msg)
	}
}

func (l *MQTTLink) Send(ctx context.Context, msg *mavlink.Message) error {
	var t string
	if l.vehicle != "" {
		t = l.topics.Build(paths.ParamUp, l.vehicle)
	} else {
		target, ok := msg.Target()
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoTarget, msg.Type())
		}
		t = l.topics.Build(paths.ParamDown, strconv.Itoa(int(target)))
	}

	data, err := mavlink.Marshal(msg)
	if err != nil {
		return err
	}
	return l.client.Publish(ctx, t, paramQoS, false, data)
}

// OnlineTopic is where the vehicle with systemID announces presence and where
// its last will lands.
func OnlineTopic(root string, systemID uint8) string {
	return topic.NewBuilder(root).Build(paths.Online, strconv.Itoa(int(systemID)))
}
