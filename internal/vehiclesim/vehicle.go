// Package vehiclesim simulates the parameter side of an autopilot: it answers
// _HASH_CHECK probes, streams its parameter list, serves the packed
// parameter file, and can be told to stay silent.
package vehiclesim

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/autopeer-io/paramsync/internal/paramsync"
	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

// Sender delivers messages to the ground station.
type Sender interface {
	Send(ctx context.Context, msg *mavlink.Message) error
}

// Config describes the simulated vehicle.
type Config struct {
	SystemID    uint8
	ComponentID uint8
	Autopilot   mavlink.Autopilot
	VehicleType uint8
	HighLatency bool
	// Params seeds the parameter set. Nil uses DefaultParams.
	Params map[string]float64
}

// Vehicle is safe for concurrent use.
type Vehicle struct {
	cfg Config
	out Sender

	mu                  sync.Mutex
	params              map[string]float64
	hashCheckNoResponse bool
	failRequestList     bool
	received            map[mavlink.MsgType]int
	hashChecks          int
}

func New(cfg Config, out Sender) *Vehicle {
	if cfg.ComponentID == 0 {
		cfg.ComponentID = mavlink.ComponentAutopilot
	}
	params := cfg.Params
	if params == nil {
		params = DefaultParams()
	}
	return &Vehicle{
		cfg:      cfg,
		out:      out,
		params:   maps.Clone(params),
		received: make(map[mavlink.MsgType]int),
	}
}

// Key returns the vehicle key the ground station caches this vehicle under.
func (v *Vehicle) Key() paramsync.VehicleKey {
	return paramsync.VehicleKey{SystemID: v.cfg.SystemID, ComponentID: v.cfg.ComponentID, Autopilot: v.cfg.Autopilot}
}

// Heartbeat builds the vehicle's heartbeat.
func (v *Vehicle) Heartbeat() *mavlink.Message {
	return v.message(&mavlink.Heartbeat{
		Autopilot:   v.cfg.Autopilot,
		VehicleType: v.cfg.VehicleType,
		HighLatency: v.cfg.HighLatency,
	})
}

// SendHeartbeat sends one heartbeat to the ground station.
func (v *Vehicle) SendHeartbeat(ctx context.Context) error {
	return v.out.Send(ctx, v.Heartbeat())
}

// Handle processes one message from the ground station and sends the replies.
func (v *Vehicle) Handle(ctx context.Context, msg *mavlink.Message) {
	if target, ok := msg.Target(); ok && target != v.cfg.SystemID {
		return
	}

	v.mu.Lock()
	v.received[msg.Type()]++
	var replies []*mavlink.Message
	switch p := msg.Payload.(type) {
	case *mavlink.ParamRequestRead:
		replies = v.onRequestRead(p)
	case *mavlink.ParamRequestList:
		if !v.failRequestList {
			replies = v.paramValues()
		}
	case *mavlink.FileTransferRequest:
		if !v.failRequestList && p.Path == mavlink.ParamFilePath {
			replies = []*mavlink.Message{v.message(&mavlink.FileTransferData{Path: p.Path, Params: maps.Clone(v.params)})}
		}
	}
	v.mu.Unlock()

	for _, r := range replies {
		if err := v.out.Send(ctx, r); err != nil {
			log.Debug("Simulated vehicle failed to reply", "system", v.cfg.SystemID, "error", err.Error())
			return
		}
	}
}

func (v *Vehicle) onRequestRead(p *mavlink.ParamRequestRead) []*mavlink.Message {
	if p.IsHashCheck() {
		v.hashChecks++
		if v.hashCheckNoResponse || !paramsync.SupportsHashCheck(v.cfg.Autopilot) {
			return nil
		}
		return []*mavlink.Message{v.message(&mavlink.ParamValue{
			ParamID:   mavlink.HashCheckParamID,
			ParamType: mavlink.ParamTypeUint32,
			Hash:      paramsync.HashParams(v.params),
		})}
	}

	names := v.sortedNames()
	for i, name := range names {
		if name == p.ParamID || (p.ParamIndex >= 0 && int(p.ParamIndex) == i) {
			return []*mavlink.Message{v.valueAt(names, i)}
		}
	}
	return nil
}

func (v *Vehicle) paramValues() []*mavlink.Message {
	names := v.sortedNames()
	out := make([]*mavlink.Message, 0, len(names))
	for i := range names {
		out = append(out, v.valueAt(names, i))
	}
	return out
}

func (v *Vehicle) valueAt(names []string, i int) *mavlink.Message {
	return v.message(&mavlink.ParamValue{
		ParamID:    names[i],
		Value:      v.params[names[i]],
		ParamType:  mavlink.ParamTypeReal32,
		ParamCount: uint16(len(names)),
		ParamIndex: uint16(i),
	})
}

func (v *Vehicle) sortedNames() []string {
	names := make([]string, 0, len(v.params))
	for n := range v.params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (v *Vehicle) message(p mavlink.Payload) *mavlink.Message {
	return &mavlink.Message{SystemID: v.cfg.SystemID, ComponentID: v.cfg.ComponentID, Payload: p}
}

// SetParamValue changes one parameter, which changes the vehicle's hash.
func (v *Vehicle) SetParamValue(name string, value float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.params[name] = value
}

// SetHashCheckNoResponse makes the vehicle ignore _HASH_CHECK probes.
func (v *Vehicle) SetHashCheckNoResponse(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hashCheckNoResponse = on
}

// FailRequestList makes the vehicle ignore list and parameter file requests.
func (v *Vehicle) FailRequestList(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failRequestList = on
}

// ReceivedCount returns how many messages of type t arrived since the last clear.
func (v *Vehicle) ReceivedCount(t mavlink.MsgType) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.received[t]
}

// HashCheckCount returns how many _HASH_CHECK probes arrived since the last clear.
func (v *Vehicle) HashCheckCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hashChecks
}

// ClearReceivedCounts resets every received message counter.
func (v *Vehicle) ClearReceivedCounts() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.received = make(map[mavlink.MsgType]int)
	v.hashChecks = 0
}

// Hash returns the digest the vehicle would report now.
func (v *Vehicle) Hash() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return paramsync.HashParams(v.params)
}

// Params returns a copy of the vehicle's parameters.
func (v *Vehicle) Params() map[string]float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return maps.Clone(v.params)
}
