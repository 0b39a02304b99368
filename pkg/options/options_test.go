package options

import (
	"testing"
	"time"

	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"0.0.0.0:8480", false},
		{":8480", false},
		{"localhost:0", false},
		{"localhost", true},
		{"host:99999", true},
		{"bad host:80", true},
		{"host:http", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if err := ValidateAddress(tt.addr); (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultsValidate(t *testing.T) {
	groups := map[string]IOptions{
		"http":   NewHttpOptions(),
		"mqtt":   NewMqttOptions(),
		"s3":     NewS3Options(),
		"cache":  NewCacheOptions(),
		"param":  NewParamOptions(),
		"serial": NewSerialOptions(),
		"gcs":    NewGCSOptions(),
		"sim":    NewSimOptions(),
	}

	for name, o := range groups {
		t.Run(name, func(t *testing.T) {
			if errs := o.Validate(); len(errs) != 0 {
				t.Errorf("default %s options invalid: %v", name, errs)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		opts IOptions
	}{
		{"cache backend", &CacheOptions{Backend: "redis"}},
		{"cache dir", &CacheOptions{Backend: CacheBackendFile}},
		{"param timeouts", &ParamOptions{}},
		{"mqtt broker", func() IOptions { o := NewMqttOptions(); o.Broker = "nope"; return o }()},
		{"serial baud", &SerialOptions{Port: "/dev/ttyUSB0"}},
		{"gcs link lost", &GCSOptions{LinkLostTimeout: time.Millisecond}},
		{"sim firmware", func() IOptions { o := NewSimOptions(); o.Firmware = "betaflight"; return o }()},
		{"http addr", &HttpOptions{Addr: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := tt.opts.Validate(); len(errs) == 0 {
				t.Errorf("Validate() accepted %+v", tt.opts)
			}
		})
	}
}

func TestDisabledGroupsSkipValidation(t *testing.T) {
	mqtt := NewMqttOptions()
	mqtt.Enabled = false
	mqtt.Broker = ""
	if errs := mqtt.Validate(); len(errs) != 0 {
		t.Errorf("disabled mqtt options rejected: %v", errs)
	}

	serial := &SerialOptions{BaudRate: -1}
	if errs := serial.Validate(); len(errs) != 0 {
		t.Errorf("serial options without port rejected: %v", errs)
	}
}

func TestSimAutopilot(t *testing.T) {
	o := NewSimOptions()
	o.Firmware = "ardupilot"
	if got := o.Autopilot(); got != mavlink.AutopilotArduPilot {
		t.Errorf("Autopilot() = %v, want %v", got, mavlink.AutopilotArduPilot)
	}
}

func TestMqttToClientConfig(t *testing.T) {
	o := NewMqttOptions()
	o.ClientID = "gcs-1"
	cfg := o.ToClientConfig()

	if cfg.BrokerURL != o.Broker || cfg.ClientID != "gcs-1" {
		t.Errorf("unexpected client config %+v", cfg)
	}
	if cfg.KeepAlive != 30 {
		t.Errorf("KeepAlive = %d, want 30", cfg.KeepAlive)
	}
}
