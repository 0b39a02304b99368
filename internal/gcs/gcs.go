package gcs

import (
	"context"
	"time"

	"github.com/autopeer-io/paramsync/internal/gcs/server"
	"github.com/autopeer-io/paramsync/internal/gcs/vehicles"
	"github.com/autopeer-io/paramsync/internal/paramsync"
	"github.com/autopeer-io/paramsync/pkg/log"
)

// GroundStation owns the vehicle sessions and the servers feeding them.
type GroundStation struct {
	vehicles      *vehicles.Manager
	timeouts      *vehicles.Timeouts
	serverManager *server.Manager
}

// Run blocks until ctx is done or a server fails.
func (g *GroundStation) Run(ctx context.Context) error {
	log.Info("Starting ground station")
	defer log.Info("Ground station stopped")

	return g.serverManager.Start(ctx)
}

// Vehicles exposes the session manager.
func (g *GroundStation) Vehicles() *vehicles.Manager {
	return g.vehicles
}

// SetTimeouts applies new protocol timeouts to sessions from their next timer on.
func (g *GroundStation) SetTimeouts(hashCheck, fetch time.Duration) {
	g.timeouts.Set(hashCheck, fetch)
	current := g.timeouts.Get()
	log.Info("Parameter timeouts updated", "hashCheck", current.HashCheck, "fetch", current.Fetch)
}

func logEvent(e paramsync.Event) {
	switch e.Type {
	case paramsync.EventParametersReady:
		log.Info("Vehicle parameters ready", "vehicle", e.Key.String(), "session", e.SessionID, "cycle", e.Cycle)
	case paramsync.EventParametersMissing:
		if e.Missing {
			log.Warn("Vehicle parameters unavailable", "vehicle", e.Key.String(), "session", e.SessionID, "cycle", e.Cycle)
		}
	}
}
