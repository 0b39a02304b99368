package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/paramsync/pkg/log"
)

// Server is anything that runs until its context is cancelled.
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all servers of the ground station.
type Manager struct {
	servers []Server
}

func NewManager(servers ...Server) *Manager {
	return &Manager{servers: servers}
}

// Add appends s. It must be called before Start.
func (m *Manager) Add(s Server) {
	m.servers = append(m.servers, s)
}

// Start launches all servers in parallel. The first failure cancels the rest.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
