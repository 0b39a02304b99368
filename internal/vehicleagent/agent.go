package vehicleagent

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/paramsync/internal/link"
	"github.com/autopeer-io/paramsync/internal/vehicleagent/hub"
	"github.com/autopeer-io/paramsync/internal/vehiclesim"
	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

// Agent runs a simulated vehicle on a link: it beats, and answers parameter
// requests from the ground station.
type Agent struct {
	vehicle  *vehiclesim.Vehicle
	link     link.Link
	hub      *hub.Hub // nil when the link is not MQTT
	interval time.Duration
	clock    clock.WithTicker
}

func NewAgent(v *vehiclesim.Vehicle, l link.Link, h *hub.Hub, interval time.Duration) *Agent {
	return &Agent{
		vehicle:  v,
		link:     l,
		hub:      h,
		interval: interval,
		clock:    clock.RealClock{},
	}
}

func (a *Agent) Run(ctx context.Context) error {
	key := a.vehicle.Key()
	log.Info("Starting paramsync vehicle agent", "vehicle", key.String(), "link", a.link.Name())

	if a.hub != nil {
		if err := a.hub.Start(ctx); err != nil {
			return err
		}
		defer a.hub.Stop()

		if err := a.hub.Announce(ctx, a.vehicle.Heartbeat()); err != nil {
			log.Error(err, "Failed to announce presence")
		}
		defer a.announceOffline()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.link.Run(ctx, a.vehicle.Handle)
	})
	g.Go(func() error {
		a.beat(ctx)
		return nil
	})

	err := g.Wait()
	log.Info("Agent shutting down...")
	return err
}

func (a *Agent) beat(ctx context.Context) {
	ticker := a.clock.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if err := a.vehicle.SendHeartbeat(ctx); err != nil && ctx.Err() == nil {
			log.Warn("Failed to send heartbeat", "error", err.Error())
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
	}
}

// announceOffline replaces the retained presence on a clean shutdown, where
// the broker does not publish the will.
func (a *Agent) announceOffline() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hb := a.vehicle.Heartbeat()
	hb.Payload.(*mavlink.Heartbeat).Offline = true
	if err := a.hub.Announce(ctx, hb); err != nil {
		log.Error(err, "Failed to announce offline")
	}
}
