package gcs

import (
	"context"
	"fmt"
	"os"

	"github.com/autopeer-io/paramsync/internal/paramsync/cache"
	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mqtt"
	"github.com/autopeer-io/paramsync/pkg/options"
)

// InitializeStore opens the configured cache backend, instrumented.
func InitializeStore(ctx context.Context, opts *options.CacheOptions, s3 *options.S3Options) (cache.Store, error) {
	var store cache.Store

	switch opts.Backend {
	case options.CacheBackendMemory:
		store = cache.NewMemoryStore()
	case options.CacheBackendS3:
		s, err := cache.NewMinIOStore(s3)
		if err != nil {
			log.Error(err, "failed to create s3 cache store")
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		store = s
	case options.CacheBackendFile:
		s, err := cache.NewFileStore(opts.Dir)
		if err != nil {
			log.Error(err, "failed to create file cache store", "dir", opts.Dir)
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}

	log.Info("Parameter cache ready", "backend", opts.Backend)
	return cache.Instrument(store), nil
}

func InitializeMQTTClient(opts *options.MqttOptions) (mqtt.Client, error) {
	cfg := opts.ToClientConfig()

	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("paramsync-gcs-%s", hostname)
	}

	mqttclient, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "failed to new mqtt client")
		return nil, err
	}

	return mqttclient, nil
}
