package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/paramsync/cmd/paramsync-vehicle/app/options"
	"github.com/autopeer-io/paramsync/pkg/app"
	"github.com/autopeer-io/paramsync/pkg/log"
)

const (
	commandName = "paramsync-vehicle"
	commandDesc = `The paramsync vehicle agent simulates an autopilot's parameter
service over MQTT or a serial port. It beats, answers _HASH_CHECK probes,
and streams its parameters, so a ground station can be exercised without
hardware.`
)

func NewApp() *app.App {
	opts := options.NewAgentOptions()
	application := app.NewApp(
		commandName,
		"Launch a simulated paramsync vehicle",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.AgentOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer log.Sync()

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		agent, err := cfg.NewAgent()
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		return agent.Run(ctx)
	}
}
