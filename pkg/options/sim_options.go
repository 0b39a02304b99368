package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

var _ IOptions = (*SimOptions)(nil)

// SimOptions describes the simulated vehicle run by the vehicle agent.
type SimOptions struct {
	SystemID    uint8  `json:"system-id" mapstructure:"system-id"`
	ComponentID uint8  `json:"component-id" mapstructure:"component-id"`
	Firmware    string `json:"firmware" mapstructure:"firmware"`
	VehicleType uint8  `json:"vehicle-type" mapstructure:"vehicle-type"`

	// HighLatency advertises a high-latency link in every heartbeat.
	HighLatency bool `json:"high-latency" mapstructure:"high-latency"`

	// HashCheckNoResponse keeps the vehicle silent on _HASH_CHECK probes.
	HashCheckNoResponse bool `json:"hash-check-no-response" mapstructure:"hash-check-no-response"`

	// FailRequestList drops PARAM_REQUEST_LIST, so full fetches time out.
	FailRequestList bool `json:"fail-request-list" mapstructure:"fail-request-list"`

	HeartbeatInterval time.Duration `json:"heartbeat-interval" mapstructure:"heartbeat-interval"`
}

func NewSimOptions() *SimOptions {
	return &SimOptions{
		SystemID:          1,
		ComponentID:       mavlink.ComponentAutopilot,
		Firmware:          "px4",
		VehicleType:       2,
		HeartbeatInterval: time.Second,
	}
}

// Autopilot resolves Firmware. It is only valid after Validate succeeded.
func (o *SimOptions) Autopilot() mavlink.Autopilot {
	ap, _ := mavlink.ParseAutopilot(o.Firmware)
	return ap
}

func (o *SimOptions) Validate() []error {
	errs := []error{}

	if _, ok := mavlink.ParseAutopilot(o.Firmware); !ok {
		errs = append(errs, fmt.Errorf("--sim.firmware %q is not one of px4, ardupilot, generic", o.Firmware))
	}
	if o.SystemID == 0 {
		errs = append(errs, errors.New("--sim.system-id must not be 0"))
	}
	if o.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("--sim.heartbeat-interval must be positive"))
	}

	return errs
}

func (o *SimOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.Uint8Var(&o.SystemID, "sim.system-id", o.SystemID, "MAVLink system id of the simulated vehicle.")
	fs.Uint8Var(&o.ComponentID, "sim.component-id", o.ComponentID, "MAVLink component id of the simulated autopilot.")
	fs.StringVar(&o.Firmware, "sim.firmware", o.Firmware, "Simulated autopilot firmware: px4, ardupilot or generic.")
	fs.Uint8Var(&o.VehicleType, "sim.vehicle-type", o.VehicleType, "MAV_TYPE reported in heartbeats.")
	fs.BoolVar(&o.HighLatency, "sim.high-latency", o.HighLatency, "Advertise a high-latency link.")
	fs.BoolVar(&o.HashCheckNoResponse, "sim.hash-check-no-response", o.HashCheckNoResponse, "Never answer _HASH_CHECK probes.")
	fs.BoolVar(&o.FailRequestList, "sim.fail-request-list", o.FailRequestList, "Ignore PARAM_REQUEST_LIST so full fetches time out.")
	fs.DurationVar(&o.HeartbeatInterval, "sim.heartbeat-interval", o.HeartbeatInterval, "Interval between heartbeats.")
}
