package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

var _ Link = (*SerialLink)(nil)

// SerialLink exchanges framed messages over a byte stream, normally a
// telemetry radio on a serial port.
type SerialLink struct {
	name string
	port io.ReadWriteCloser

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// OpenSerial opens portName at baudRate, 8N1.
func OpenSerial(portName string, baudRate int) (*SerialLink, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return NewStreamLink(portName, port), nil
}

// NewStreamLink wraps an already open byte stream.
func NewStreamLink(name string, port io.ReadWriteCloser) *SerialLink {
	return &SerialLink{name: name, port: port}
}

func (l *SerialLink) Name() string { return l.name }

func (l *SerialLink) Send(_ context.Context, msg *mavlink.Message) error {
	frame, err := mavlink.EncodeFrame(msg)
	if err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if _, err := l.port.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame on %s: %w", l.name, err)
	}
	return nil
}

// Run reads frames until ctx is done or the port fails. The port is closed
// when Run returns.
func (l *SerialLink) Run(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()
	defer l.Close()

	decoder := mavlink.NewDecoder()
	onError := func(err error) {
		log.Debug("Dropping bad frame", "link", l.name, "error", err.Error())
	}

	buf := make([]byte, 512)
	for {
		n, err := l.port.Read(buf)
		if n > 0 {
			for _, msg := range decoder.Decode(buf[:n], onError) {
				h(ctx, msg)
			}
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read from %s: %w", l.name, err)
		}
	}
}

func (l *SerialLink) Close() error {
	var err error
	l.closeOnce.Do(func() { err = l.port.Close() })
	return err
}
