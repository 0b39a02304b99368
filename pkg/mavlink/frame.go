package mavlink

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrShortFrame    = errors.New("mavlink: frame too short")
	ErrBadCRC        = errors.New("mavlink: crc mismatch")
	ErrFrameTooLarge = errors.New("mavlink: frame too large")
)

// CalculateCRC computes CRC-16-CCITT over data.
func CalculateCRC(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// EncodeFrame wraps a marshalled message for a byte stream:
// start | len (LE) | payload | crc (LE).
func EncodeFrame(msg *Message) ([]byte, error) {
	payload, err := Marshal(msg)
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	frame := make([]byte, headerSize+len(payload)+trailerSize)
	frame[0] = StartByte
	binary.LittleEndian.PutUint16(frame[1:3], uint16(len(payload)))
	copy(frame[headerSize:], payload)
	binary.LittleEndian.PutUint16(frame[headerSize+len(payload):], CalculateCRC(payload))
	return frame, nil
}

const (
	stateIdle = iota
	stateLength1
	stateLength2
	statePayload
	stateCRC1
	stateCRC2
)

// Decoder reassembles frames from a byte stream. It drops bytes until it sees a
// start byte and resynchronises after a CRC failure.
type Decoder struct {
	state  int
	length int
	buffer []byte
	crc    uint16
}

func NewDecoder() *Decoder {
	return &Decoder{buffer: make([]byte, 0, 512)}
}

// Reset discards any partial frame.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.length = 0
	d.crc = 0
	d.buffer = d.buffer[:0]
}

// DecodeByte feeds one byte. It returns a message when a frame completes,
// an error when a completed frame is invalid, and (nil, nil) otherwise.
func (d *Decoder) DecodeByte(b byte) (*Message, error) {
	switch d.state {
	case stateIdle:
		if b == StartByte {
			d.Reset()
			d.state = stateLength1
		}
	case stateLength1:
		d.length = int(b)
		d.state = stateLength2
	case stateLength2:
		d.length |= int(b) << 8
		if d.length == 0 {
			d.Reset()
			return nil, ErrShortFrame
		}
		d.state = statePayload
	case statePayload:
		d.buffer = append(d.buffer, b)
		if len(d.buffer) == d.length {
			d.state = stateCRC1
		}
	case stateCRC1:
		d.crc = uint16(b)
		d.state = stateCRC2
	case stateCRC2:
		d.crc |= uint16(b) << 8
		payload := d.buffer
		expected := CalculateCRC(payload)
		got := d.crc
		d.state = stateIdle
		if got != expected {
			d.buffer = d.buffer[:0]
			return nil, fmt.Errorf("%w: expected 0x%04X, got 0x%04X", ErrBadCRC, expected, got)
		}
		msg, err := Unmarshal(payload)
		d.buffer = d.buffer[:0]
		return msg, err
	}
	return nil, nil
}

// Decode feeds a chunk and returns all messages completed by it. Invalid
// frames are reported through onError and skipped.
func (d *Decoder) Decode(chunk []byte, onError func(error)) []*Message {
	var out []*Message
	for _, b := range chunk {
		msg, err := d.DecodeByte(b)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			continue
		}
		if msg != nil {
			out = append(out, msg)
		}
	}
	return out
}
