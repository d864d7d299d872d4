package protocol

import (
	"encoding/json"
	"fmt"
)

// SenderKind categorises the originator of an envelope.
type SenderKind string

// Recognised sender kinds.
const (
	SenderDevice      SenderKind = "device"
	SenderCoordinator SenderKind = "coordinator"
)

// Sender describes the originator of a message well enough for the receiving
// side to reconstruct its identity without a prior handshake.
//
// Device senders carry id, room, deviceType and consumption; coordinator
// senders carry only a name.
type Sender struct {
	Kind        SenderKind `json:"kind"`
	ID          string     `json:"id,omitempty"`
	Room        string     `json:"room,omitempty"`
	DeviceType  string     `json:"deviceType,omitempty"`
	Consumption int        `json:"consumption,omitempty"`
	Name        string     `json:"name,omitempty"`
}

// DeviceSender builds the sender descriptor for a device.
func DeviceSender(id, room, deviceType string, consumption int) Sender {
	return Sender{
		Kind:        SenderDevice,
		ID:          id,
		Room:        room,
		DeviceType:  deviceType,
		Consumption: consumption,
	}
}

// CoordinatorSender builds the sender descriptor for the coordinator.
func CoordinatorSender(name string) Sender {
	return Sender{Kind: SenderCoordinator, Name: name}
}

// validate checks the per-kind required fields.
func (s Sender) validate() error {
	switch s.Kind {
	case SenderDevice:
		if s.ID == "" || s.Room == "" || s.DeviceType == "" {
			return fmt.Errorf("%w: device sender missing identity fields (id=%q room=%q deviceType=%q)",
				ErrMalformedEnvelope, s.ID, s.Room, s.DeviceType)
		}
	case SenderCoordinator:
		if s.Name == "" {
			return fmt.Errorf("%w: coordinator sender missing name", ErrMalformedEnvelope)
		}
	default:
		return fmt.Errorf("%w: unrecognised sender kind %q", ErrMalformedEnvelope, s.Kind)
	}
	return nil
}

// Envelope pairs a raw wire command with its sender descriptor. It is the
// published MQTT message body for every topic in the system.
type Envelope struct {
	Message string `json:"message"`
	Sender  Sender `json:"sender"`
}

// Encode serialises the envelope after validating the sender descriptor.
func (e Envelope) Encode() ([]byte, error) {
	if e.Message == "" {
		return nil, fmt.Errorf("%w: empty message", ErrMalformedEnvelope)
	}
	if err := e.Sender.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	return data, nil
}

// DecodeEnvelope parses and validates an envelope payload.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	if e.Message == "" {
		return Envelope{}, fmt.Errorf("%w: empty message", ErrMalformedEnvelope)
	}
	if err := e.Sender.validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
