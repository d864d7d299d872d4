package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrUnknownDeviceType) {
//	    // handle unknown type
//	}
//
// Protocol-level violations (unexpected message/topic, malformed payloads)
// use the sentinels in the protocol package.
var (
	// ErrUnknownDeviceType is returned when a type name matches no variant.
	ErrUnknownDeviceType = errors.New("device: unknown type")

	// ErrInvalidRoom is returned when a room is not in the allowed set.
	ErrInvalidRoom = errors.New("device: invalid room")

	// ErrNotConnected is returned when an operation requires a live session.
	ErrNotConnected = errors.New("device: not connected")

	// ErrNotSensor is returned when a sensor operation is invoked on an
	// actuator type.
	ErrNotSensor = errors.New("device: not a sensor")
)
