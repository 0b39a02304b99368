package vehicleagent

import (
	"errors"
	"fmt"

	"github.com/autopeer-io/paramsync/internal/link"
	"github.com/autopeer-io/paramsync/internal/vehicleagent/hub"
	"github.com/autopeer-io/paramsync/internal/vehiclesim"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
	"github.com/autopeer-io/paramsync/pkg/mqtt"
	"github.com/autopeer-io/paramsync/pkg/options"
)

type Config struct {
	MqttOptions   *options.MqttOptions
	SerialOptions *options.SerialOptions
	SimOptions    *options.SimOptions
}

// NewAgent builds the simulated vehicle on a serial port when one is
// configured, on MQTT otherwise.
func (cfg *Config) NewAgent() (*Agent, error) {
	sim := cfg.SimOptions
	simCfg := vehiclesim.Config{
		SystemID:    sim.SystemID,
		ComponentID: sim.ComponentID,
		Autopilot:   sim.Autopilot(),
		VehicleType: sim.VehicleType,
		HighLatency: sim.HighLatency,
	}

	if cfg.SerialOptions.Port != "" {
		l, err := link.OpenSerial(cfg.SerialOptions.Port, cfg.SerialOptions.BaudRate)
		if err != nil {
			return nil, err
		}
		return NewAgent(cfg.newVehicle(simCfg, l), l, nil, sim.HeartbeatInterval), nil
	}

	if !cfg.MqttOptions.Enabled {
		return nil, errors.New("no link configured: set --serial.port or enable --mqtt.enabled")
	}

	onlineTopic := link.OnlineTopic(cfg.MqttOptions.TopicRoot, sim.SystemID)
	client, err := cfg.initMqttClient(simCfg, onlineTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}

	l := link.NewVehicleMQTTLink(client, cfg.MqttOptions.TopicRoot, sim.SystemID)
	return NewAgent(cfg.newVehicle(simCfg, l), l, hub.New(client, onlineTopic), sim.HeartbeatInterval), nil
}

func (cfg *Config) newVehicle(simCfg vehiclesim.Config, l link.Link) *vehiclesim.Vehicle {
	v := vehiclesim.New(simCfg, l)
	v.SetHashCheckNoResponse(cfg.SimOptions.HashCheckNoResponse)
	v.FailRequestList(cfg.SimOptions.FailRequestList)
	return v
}

func (cfg *Config) initMqttClient(simCfg vehiclesim.Config, onlineTopic string) (mqtt.Client, error) {
	mqttConfig := cfg.MqttOptions.ToClientConfig()
	if mqttConfig.ClientID == "" {
		mqttConfig.ClientID = fmt.Sprintf("paramsync-vehicle-%d", simCfg.SystemID)
	}

	offline, err := mavlink.Marshal(&mavlink.Message{
		SystemID:    simCfg.SystemID,
		ComponentID: simCfg.ComponentID,
		Payload: &mavlink.Heartbeat{
			Autopilot:   simCfg.Autopilot,
			VehicleType: simCfg.VehicleType,
			HighLatency: simCfg.HighLatency,
			Offline:     true,
		},
	})
	if err != nil {
		return nil, err
	}

	mqttConfig.WillTopic = onlineTopic
	mqttConfig.WillPayload = offline
	mqttConfig.WillQoS = mqtt.QoSAtLeastOnce
	mqttConfig.WillRetain = true

	return mqtt.NewClient(mqttConfig)
}
