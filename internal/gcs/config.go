package gcs

import (
	"context"
	"fmt"

	"github.com/autopeer-io/paramsync/internal/gcs/server"
	httpserver "github.com/autopeer-io/paramsync/internal/gcs/server/http"
	mqttserver "github.com/autopeer-io/paramsync/internal/gcs/server/mqtt"
	serialserver "github.com/autopeer-io/paramsync/internal/gcs/server/serial"
	"github.com/autopeer-io/paramsync/internal/gcs/vehicles"
	"github.com/autopeer-io/paramsync/pkg/options"
)

type Config struct {
	GCSOptions    *options.GCSOptions
	HttpOptions   *options.HttpOptions
	MqttOptions   *options.MqttOptions
	S3Options     *options.S3Options
	CacheOptions  *options.CacheOptions
	ParamOptions  *options.ParamOptions
	SerialOptions *options.SerialOptions
}

// NewGroundStation assembles the cache, the vehicle manager and every enabled link.
func (cfg *Config) NewGroundStation(ctx context.Context) (*GroundStation, error) {
	// 1. Infrastructure: parameter cache
	store, err := InitializeStore(ctx, cfg.CacheOptions, cfg.S3Options)
	if err != nil {
		return nil, err
	}

	// 2. Core: vehicle sessions
	timeouts := vehicles.NewTimeouts(cfg.ParamOptions.HashCheckTimeout, cfg.ParamOptions.FetchTimeout)
	vm, err := vehicles.NewManager(vehicles.Config{
		Store:           store,
		Timeouts:        timeouts,
		LinkLostTimeout: cfg.GCSOptions.LinkLostTimeout,
		LogReplay:       cfg.GCSOptions.LogReplay,
		SystemID:        cfg.ParamOptions.SystemID,
		ComponentID:     cfg.ParamOptions.ComponentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init vehicle manager: %w", err)
	}
	vm.Subscribe(logEvent)

	// 3. Ingress: links and the control API
	srvManager := server.NewManager(vm, httpserver.NewServer(cfg.HttpOptions, vm))

	if cfg.MqttOptions.Enabled {
		client, err := InitializeMQTTClient(cfg.MqttOptions)
		if err != nil {
			return nil, err
		}
		srvManager.Add(mqttserver.NewServer(client, cfg.MqttOptions.TopicRoot, cfg.GCSOptions.SharedGroup, vm.Handler))
	}
	if cfg.SerialOptions.Port != "" {
		srvManager.Add(serialserver.NewServer(cfg.SerialOptions, vm.Handler))
	}

	return &GroundStation{
		vehicles:      vm,
		timeouts:      timeouts,
		serverManager: srvManager,
	}, nil
}
