package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*GCSOptions)(nil)

// GCSOptions configures vehicle session handling on the ground station.
type GCSOptions struct {
	// LinkLostTimeout closes a session once heartbeats stop for this long.
	LinkLostTimeout time.Duration `json:"link-lost-timeout" mapstructure:"link-lost-timeout"`

	// LogReplay marks every link as a log replay. Parameters are never requested.
	LogReplay bool `json:"log-replay" mapstructure:"log-replay"`

	// SharedGroup enables MQTT shared subscriptions between replicas.
	SharedGroup string `json:"shared-group" mapstructure:"shared-group"`
}

func NewGCSOptions() *GCSOptions {
	return &GCSOptions{
		LinkLostTimeout: 10 * time.Second,
	}
}

func (o *GCSOptions) Validate() []error {
	errs := []error{}

	if o.LinkLostTimeout < time.Second {
		errs = append(errs, errors.New("--gcs.link-lost-timeout must be at least 1s"))
	}

	return errs
}

func (o *GCSOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.LinkLostTimeout, "gcs.link-lost-timeout", o.LinkLostTimeout, "Close a vehicle session when no heartbeat arrives for this long.")
	fs.BoolVar(&o.LogReplay, "gcs.log-replay", o.LogReplay, "Treat all traffic as a log replay and never request parameters.")
	fs.StringVar(&o.SharedGroup, "gcs.shared-group", o.SharedGroup, "MQTT shared subscription group, for running several ground station replicas.")
}
