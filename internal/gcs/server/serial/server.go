package serial

import (
	"context"

	"github.com/autopeer-io/paramsync/internal/link"
	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
	"github.com/autopeer-io/paramsync/pkg/options"
)

// Server runs a telemetry radio link.
type Server struct {
	opts    *options.SerialOptions
	handler func(l link.Link) link.Handler
}

func NewServer(opts *options.SerialOptions, handler func(l link.Link) link.Handler) *Server {
	return &Server{opts: opts, handler: handler}
}

// Start opens the port and reads until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	l, err := link.OpenSerial(s.opts.Port, s.opts.BaudRate)
	if err != nil {
		return err
	}

	log.Info("Serial link opened", "port", s.opts.Port, "baud", s.opts.BaudRate, "highLatency", s.opts.HighLatency)
	return l.Run(ctx, s.wrap(s.handler(l)))
}

func (s *Server) wrap(h link.Handler) link.Handler {
	if !s.opts.HighLatency {
		return h
	}
	return MarkHighLatency(h)
}

// MarkHighLatency flags every heartbeat passing through h as coming over a
// high-latency link.
func MarkHighLatency(h link.Handler) link.Handler {
	return func(ctx context.Context, msg *mavlink.Message) {
		if hb, ok := msg.Payload.(*mavlink.Heartbeat); ok {
			hb.HighLatency = true
		}
		h(ctx, msg)
	}
}
