package mavlink

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var ErrUnknownMessage = errors.New("unknown message type")

type envelope struct {
	_           struct{} `cbor:",toarray"`
	Type        MsgType
	SystemID    uint8
	ComponentID uint8
	Payload     cbor.RawMessage
}

var encMode cbor.EncMode

func init() {
	var err error
	// Canonical encoding keeps map order stable, which the cache files rely on.
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("mavlink: cbor enc mode: %v", err))
	}
}

// Marshal encodes msg as [type, system, component, payload].
func Marshal(msg *Message) ([]byte, error) {
	if msg == nil || msg.Payload == nil {
		return nil, errors.New("mavlink: empty message")
	}

	payload, err := encMode.Marshal(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("mavlink: encode %s payload: %w", msg.Type(), err)
	}

	return encMode.Marshal(envelope{
		Type:        msg.Type(),
		SystemID:    msg.SystemID,
		ComponentID: msg.ComponentID,
		Payload:     payload,
	})
}

// Unmarshal decodes bytes produced by Marshal.
func Unmarshal(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, errors.New("mavlink: empty payload")
	}

	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("mavlink: decode envelope: %w", err)
	}

	var p Payload
	switch env.Type {
	case MsgHeartbeat:
		p = &Heartbeat{}
	case MsgParamRequestRead:
		p = &ParamRequestRead{}
	case MsgParamRequestList:
		p = &ParamRequestList{}
	case MsgParamValue:
		p = &ParamValue{}
	case MsgFileTransferRequest:
		p = &FileTransferRequest{}
	case MsgFileTransferData:
		p = &FileTransferData{}
	default:
		return nil, fmt.Errorf("mavlink: type %d: %w", env.Type, ErrUnknownMessage)
	}

	if len(env.Payload) > 0 {
		if err := cbor.Unmarshal(env.Payload, p); err != nil {
			return nil, fmt.Errorf("mavlink: decode %s payload: %w", env.Type, err)
		}
	}

	return &Message{SystemID: env.SystemID, ComponentID: env.ComponentID, Payload: p}, nil
}
