package paramsync

import "errors"

var (
	// ErrSessionClosed is returned by calls on a disconnected coordinator.
	ErrSessionClosed = errors.New("parameter session closed")
	// ErrNotConnected is returned when a message or command arrives before Connect.
	ErrNotConnected = errors.New("parameter session not connected")
	// ErrAlreadyConnected is returned by a second Connect.
	ErrAlreadyConnected = errors.New("parameter session already connected")
)
