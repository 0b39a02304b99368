package paramsync

import (
	"time"

	"github.com/autopeer-io/paramsync/internal/paramsync/cache"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

// VehicleKey identifies a vehicle's parameter set.
type VehicleKey = cache.VehicleKey

// LinkClass selects which sync path a session takes.
type LinkClass int

const (
	LinkStandard LinkClass = iota
	LinkHighLatency
	LinkLogReplay
	// LinkFileTransfer is used by firmware that ships its parameters as a file.
	LinkFileTransfer
)

func (c LinkClass) String() string {
	switch c {
	case LinkStandard:
		return "standard"
	case LinkHighLatency:
		return "high_latency"
	case LinkLogReplay:
		return "log_replay"
	case LinkFileTransfer:
		return "file_transfer"
	default:
		return "unknown"
	}
}

// ClassifyLink derives the link class from what is known about the vehicle.
func ClassifyLink(hb *mavlink.Heartbeat, logReplay bool) LinkClass {
	switch {
	case logReplay:
		return LinkLogReplay
	case hb.HighLatency:
		return LinkHighLatency
	case hb.Autopilot == mavlink.AutopilotArduPilot:
		return LinkFileTransfer
	default:
		return LinkStandard
	}
}

// SupportsHashCheck reports whether the firmware answers _HASH_CHECK probes.
func SupportsHashCheck(a mavlink.Autopilot) bool {
	return a == mavlink.AutopilotPX4
}

// State is the session state.
type State string

const (
	StateIdle              State = "Idle"
	StateAwaitingHashCheck State = "AwaitingHashCheck"
	StateAwaitingFullList  State = "AwaitingFullList"
	StateReady             State = "Ready"
	StateFailed            State = "Failed"
)

// Terminal reports whether no further transition happens without a refresh.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// AllStates lists every state, in lifecycle order.
var AllStates = []State{StateIdle, StateAwaitingHashCheck, StateAwaitingFullList, StateReady, StateFailed}

// Timeouts bounds the two request phases.
type Timeouts struct {
	HashCheck time.Duration
	Fetch     time.Duration
}

const (
	DefaultHashCheckTimeout = time.Second
	DefaultFetchTimeout     = 5 * time.Second
)

// DefaultTimeouts returns the production timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{HashCheck: DefaultHashCheckTimeout, Fetch: DefaultFetchTimeout}
}

// Counters counts requests sent during the current sync cycle.
type Counters struct {
	HashCheckRequests int `json:"hashCheckRequests"`
	ListRequests      int `json:"listRequests"`
	FileRequests      int `json:"fileRequests"`
	ValuesReceived    int `json:"valuesReceived"`
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	Key         VehicleKey `json:"key"`
	SessionID   string     `json:"sessionID"`
	LinkClass   string     `json:"linkClass"`
	State       State      `json:"state"`
	Ready       bool       `json:"ready"`
	Missing     bool       `json:"missing"`
	Cycle       int        `json:"cycle"`
	ParamCount  int        `json:"paramCount"`
	CachedHash  *uint64    `json:"cachedHash,omitempty"`
	LiveHash    *uint64    `json:"liveHash,omitempty"`
	ConnectedAt time.Time  `json:"connectedAt"`
	Counters    Counters   `json:"counters"`
}
