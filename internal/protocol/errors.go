package protocol

import "errors"

// Protocol errors shared by both sides of the device/coordinator contract.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMalformedMessage is returned when a wire command does not split into
	// exactly two or three underscore-separated fields, or the id field is
	// not an integer.
	ErrMalformedMessage = errors.New("protocol: malformed message")

	// ErrMalformedEnvelope is returned when an envelope is missing required
	// fields or carries an unrecognised sender kind.
	ErrMalformedEnvelope = errors.New("protocol: malformed envelope")

	// ErrUnexpectedTopic is returned when a message arrives on a topic the
	// receiver never subscribed to. Fatal for that message only.
	ErrUnexpectedTopic = errors.New("protocol: unexpected topic")

	// ErrUnexpectedMessage is returned when a message token is not valid in
	// the receiver's current state. Fatal for that message only.
	ErrUnexpectedMessage = errors.New("protocol: unexpected message")
)
