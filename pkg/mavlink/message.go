package mavlink

import "fmt"

// Payload is implemented by every message body.
type Payload interface {
	MsgType() MsgType
}

// Message is one link message together with the sender's address.
type Message struct {
	SystemID    uint8
	ComponentID uint8
	Payload     Payload
}

// Type returns the payload's message type.
func (m *Message) Type() MsgType {
	if m == nil || m.Payload == nil {
		return 0
	}
	return m.Payload.MsgType()
}

func (m *Message) String() string {
	return fmt.Sprintf("%s(sys=%d comp=%d)", m.Type(), m.SystemID, m.ComponentID)
}

// Heartbeat announces a vehicle and the properties of its link.
type Heartbeat struct {
	Autopilot   Autopilot `cbor:"1,keyasint"`
	VehicleType uint8     `cbor:"2,keyasint"`
	// HighLatency is set by vehicles talking over a high-latency link (e.g. satellite).
	HighLatency bool `cbor:"3,keyasint,omitempty"`
	// Offline is set on last-will heartbeats published by the broker.
	Offline bool `cbor:"4,keyasint,omitempty"`
}

func (*Heartbeat) MsgType() MsgType { return MsgHeartbeat }

// ParamRequestRead asks for a single parameter by id or index.
// An index of -1 selects by id.
type ParamRequestRead struct {
	TargetSystem    uint8  `cbor:"1,keyasint"`
	TargetComponent uint8  `cbor:"2,keyasint"`
	ParamID         string `cbor:"3,keyasint"`
	ParamIndex      int16  `cbor:"4,keyasint"`
}

func (*ParamRequestRead) MsgType() MsgType { return MsgParamRequestRead }

// IsHashCheck reports whether the request is a _HASH_CHECK probe.
func (r *ParamRequestRead) IsHashCheck() bool {
	return r.ParamIndex == -1 && r.ParamID == HashCheckParamID
}

// ParamRequestList asks the vehicle to stream its whole parameter set.
type ParamRequestList struct {
	TargetSystem    uint8 `cbor:"1,keyasint"`
	TargetComponent uint8 `cbor:"2,keyasint"`
}

func (*ParamRequestList) MsgType() MsgType { return MsgParamRequestList }

// ParamValue carries one parameter, or the vehicle hash when ParamID is _HASH_CHECK.
type ParamValue struct {
	ParamID    string    `cbor:"1,keyasint"`
	Value      float64   `cbor:"2,keyasint"`
	ParamType  ParamType `cbor:"3,keyasint"`
	ParamCount uint16    `cbor:"4,keyasint"`
	ParamIndex uint16    `cbor:"5,keyasint"`
	Hash       uint64    `cbor:"6,keyasint,omitempty"`
}

func (*ParamValue) MsgType() MsgType { return MsgParamValue }

// IsHashCheck reports whether the value is a _HASH_CHECK response.
func (v *ParamValue) IsHashCheck() bool {
	return v.ParamID == HashCheckParamID
}

// FileTransferRequest asks for a file over the file-transfer channel.
type FileTransferRequest struct {
	TargetSystem    uint8  `cbor:"1,keyasint"`
	TargetComponent uint8  `cbor:"2,keyasint"`
	Path            string `cbor:"3,keyasint"`
}

func (*FileTransferRequest) MsgType() MsgType { return MsgFileTransferRequest }

// FileTransferData returns a packed parameter file in one piece.
type FileTransferData struct {
	Path   string             `cbor:"1,keyasint"`
	Params map[string]float64 `cbor:"2,keyasint"`
}

func (*FileTransferData) MsgType() MsgType { return MsgFileTransferData }

// Target returns the system a request is addressed to. ok is false for
// messages that carry no target.
func (m *Message) Target() (system uint8, ok bool) {
	switch p := m.Payload.(type) {
	case *ParamRequestRead:
		return p.TargetSystem, true
	case *ParamRequestList:
		return p.TargetSystem, true
	case *FileTransferRequest:
		return p.TargetSystem, true
	}
	return 0, false
}
