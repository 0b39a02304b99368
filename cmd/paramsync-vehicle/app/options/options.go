package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/paramsync/internal/vehicleagent"
	"github.com/autopeer-io/paramsync/pkg/app"
	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/options"
)

type AgentOptions struct {
	SimOptions    *options.SimOptions    `json:"sim" mapstructure:"sim"`
	MqttOptions   *options.MqttOptions   `json:"mqtt" mapstructure:"mqtt"`
	SerialOptions *options.SerialOptions `json:"serial" mapstructure:"serial"`
	Log           *log.Options           `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*AgentOptions)(nil)

func NewAgentOptions() *AgentOptions {
	o := &AgentOptions{
		SimOptions:    options.NewSimOptions(),
		MqttOptions:   options.NewMqttOptions(),
		SerialOptions: options.NewSerialOptions(),
		Log:           log.NewOptions(),
	}

	return o
}

func (o *AgentOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.SimOptions.AddFlags(fss.FlagSet("sim"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.SerialOptions.AddFlags(fss.FlagSet("serial"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// Complete disables MQTT when a serial port is given.
func (o *AgentOptions) Complete() error {
	if o.SerialOptions.Port != "" {
		o.MqttOptions.Enabled = false
	}
	return nil
}

func (o *AgentOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.SimOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.SerialOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *AgentOptions) Config() (*vehicleagent.Config, error) {
	return &vehicleagent.Config{
		MqttOptions:   o.MqttOptions,
		SerialOptions: o.SerialOptions,
		SimOptions:    o.SimOptions,
	}, nil
}
