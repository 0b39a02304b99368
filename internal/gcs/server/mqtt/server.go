package mqtt

import (
	"context"
	"time"

	"github.com/autopeer-io/paramsync/internal/link"
	"github.com/autopeer-io/paramsync/pkg/log"
	pkgmqtt "github.com/autopeer-io/paramsync/pkg/mqtt"
)

// HandlerFactory binds a link to the component consuming its traffic.
type HandlerFactory func(l link.Link) link.Handler

// Server implements the MQTT ingress of the ground station.
type Server struct {
	client  pkgmqtt.Client
	link    *link.MQTTLink
	handler HandlerFactory
}

// NewServer creates a server that feeds every vehicle reachable through the
// broker under root into handler.
func NewServer(client pkgmqtt.Client, root, group string, handler HandlerFactory) *Server {
	return &Server{
		client:  client,
		link:    link.NewGCSMQTTLink(client, root, group),
		handler: handler,
	}
}

// Start connects to the broker and runs the link until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		log.Info("Disconnecting MQTT client...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
		log.Info("MQTT client disconnected")
	}()

	log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Info("MQTT Connected")

	return s.link.Run(ctx, s.handler(s.link))
}
