package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*ParamOptions)(nil)

// ParamOptions holds the parameter synchronization timing knobs.
// Both timeouts can be changed at runtime through a watched config file.
type ParamOptions struct {
	// HashCheckTimeout bounds the wait for a _HASH_CHECK response.
	HashCheckTimeout time.Duration `json:"hash-check-timeout" mapstructure:"hash-check-timeout"`

	// FetchTimeout bounds the full list fetch. It is re-armed on every received value.
	FetchTimeout time.Duration `json:"fetch-timeout" mapstructure:"fetch-timeout"`

	// SystemID and ComponentID identify the ground station on the link.
	SystemID    uint8 `json:"system-id" mapstructure:"system-id"`
	ComponentID uint8 `json:"component-id" mapstructure:"component-id"`
}

func NewParamOptions() *ParamOptions {
	return &ParamOptions{
		HashCheckTimeout: time.Second,
		FetchTimeout:     5 * time.Second,
		SystemID:         255,
		ComponentID:      190,
	}
}

func (o *ParamOptions) Validate() []error {
	errs := []error{}

	if o.HashCheckTimeout <= 0 {
		errs = append(errs, errors.New("--param.hash-check-timeout must be positive"))
	}
	if o.FetchTimeout <= 0 {
		errs = append(errs, errors.New("--param.fetch-timeout must be positive"))
	}

	return errs
}

func (o *ParamOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.HashCheckTimeout, "param.hash-check-timeout", o.HashCheckTimeout, "How long to wait for a _HASH_CHECK response before falling back to a full fetch.")
	fs.DurationVar(&o.FetchTimeout, "param.fetch-timeout", o.FetchTimeout, "How long the full parameter fetch may stall before the session fails.")
	fs.Uint8Var(&o.SystemID, "param.system-id", o.SystemID, "MAVLink system id of this ground station.")
	fs.Uint8Var(&o.ComponentID, "param.component-id", o.ComponentID, "MAVLink component id of this ground station.")
}
