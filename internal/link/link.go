// Package link carries mavlink messages between the ground station and
// vehicles over MQTT, serial telemetry radios or in-process pipes.
package link

import (
	"context"
	"errors"

	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

var (
	// ErrClosed is returned by Send after the link has been closed.
	ErrClosed = errors.New("link closed")
	// ErrNoTarget is returned when a downlink message names no target system.
	ErrNoTarget = errors.New("message has no target system")
)

// Handler receives decoded inbound messages in arrival order.
type Handler func(ctx context.Context, msg *mavlink.Message)

// Link is a bidirectional message transport.
type Link interface {
	// Name identifies the link in logs.
	Name() string
	// Run delivers inbound messages to h until ctx is done or the link fails.
	Run(ctx context.Context, h Handler) error
	// Send transmits msg. It is safe for concurrent use.
	Send(ctx context.Context, msg *mavlink.Message) error
}
