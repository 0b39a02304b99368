package app

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/paramsync/cmd/paramsync-gcs/app/options"
	"github.com/autopeer-io/paramsync/internal/gcs"
	"github.com/autopeer-io/paramsync/pkg/app"
	"github.com/autopeer-io/paramsync/pkg/log"
)

const (
	commandName = "paramsync-gcs"
	commandDesc = `The paramsync ground station keeps a cached copy of every connected
vehicle's parameters. On reconnect it asks the autopilot for a _HASH_CHECK
and only downloads the full list when the cache is stale.`
)

func NewApp() *app.App {
	opts := options.NewServerOptions()
	r := &runner{opts: opts}
	application := app.NewApp(
		commandName,
		"Launch a paramsync ground station",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(r.run),
		app.WithConfigReload(r.reload),
		app.WithSubCommands(newCacheCommand(opts)),
	)
	return application
}

type runner struct {
	opts *options.ServerOptions

	mu sync.Mutex
	gs *gcs.GroundStation
}

func (r *runner) run() error {
	log.Init(r.opts.Log)
	defer log.Sync()

	ctx := genericapiserver.SetupSignalContext()

	cfg, err := r.opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	gs, err := cfg.NewGroundStation(ctx)
	if err != nil {
		return fmt.Errorf("failed to create ground station: %w", err)
	}

	r.mu.Lock()
	r.gs = gs
	r.mu.Unlock()

	return gs.Run(ctx)
}

// reload applies the parameter timeouts of a changed config file.
func (r *runner) reload(v *viper.Viper) {
	r.mu.Lock()
	gs := r.gs
	r.mu.Unlock()
	if gs == nil {
		return
	}

	gs.SetTimeouts(v.GetDuration("param.hash-check-timeout"), v.GetDuration("param.fetch-timeout"))
}
