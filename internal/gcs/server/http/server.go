package http

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/options"
)

type Server struct {
	server  *http.Server
	options *options.HttpOptions
}

func NewServer(opts *options.HttpOptions, svc VehicleService) *Server {
	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewHandler(svc),
			ReadHeaderTimeout: opts.Timeout,
			WriteTimeout:      opts.Timeout,
		},
		options: opts,
	}
}

// Start serves until ctx is done. An empty address disables the listener.
func (s *Server) Start(ctx context.Context) error {
	if s.options.Addr == "" {
		log.Info("HTTP server disabled")
		<-ctx.Done()
		return nil
	}

	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}

	log.Info("Starting HTTP Server", "network", s.options.Network, "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutting down HTTP Server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.Timeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
