// Package protocol defines the wire contract between simulated devices and
// the coordinator.
//
// This package manages:
//   - The compact command format (underscore-separated id/command/value)
//   - The JSON envelope wrapping a command with sender identity
//   - The shared message tokens of the registration handshake
//   - The protocol-level error taxonomy
//
// # Architecture
//
// Devices and the coordinator share no memory; every interaction crosses the
// MQTT broker as an envelope whose body carries an encoded command:
//
//	Device ↔ Envelope ↔ MQTT Broker ↔ Envelope ↔ Coordinator
//
// The envelope exists so the receiving side can reconstruct who is talking
// (device or coordinator, plus device metadata) without a prior handshake.
//
// # Usage
//
//	msg := protocol.NewCommandValue(0, "setIntensity", "80")
//	env := protocol.Envelope{
//	    Message: msg.Encode(),
//	    Sender:  protocol.DeviceSender("light-1", "kitchen", "light", 10),
//	}
//	payload, err := env.Encode()
//
// Decoding is the exact inverse: DecodeEnvelope then Decode on the inner
// message string.
package protocol
