package options

import (
	"errors"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SerialOptions)(nil)

// SerialOptions configures a telemetry radio link. An empty Port disables it.
type SerialOptions struct {
	Port     string `json:"port" mapstructure:"port"`
	BaudRate int    `json:"baud-rate" mapstructure:"baud-rate"`
	// HighLatency marks the radio as a high-latency link (parameter sync is skipped).
	HighLatency bool `json:"high-latency" mapstructure:"high-latency"`
}

func NewSerialOptions() *SerialOptions {
	return &SerialOptions{
		BaudRate: 57600,
	}
}

func (o *SerialOptions) Validate() []error {
	if o.Port == "" {
		return nil
	}

	errs := []error{}
	if o.BaudRate <= 0 {
		errs = append(errs, errors.New("--serial.baud-rate must be positive"))
	}
	return errs
}

func (o *SerialOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Port, "serial.port", o.Port, "Serial device of a telemetry radio (e.g. /dev/ttyUSB0). Empty disables the serial link.")
	fs.IntVar(&o.BaudRate, "serial.baud-rate", o.BaudRate, "Baud rate of the telemetry radio.")
	fs.BoolVar(&o.HighLatency, "serial.high-latency", o.HighLatency, "Treat the serial link as high latency and skip parameter sync.")
}
