// Package device implements the simulated smart-home devices.
//
// This package manages:
//   - The closed set of device types with their capability tables
//     (default consumption, level bounds, recognised commands)
//   - Device construction from a type name, id and room
//   - The per-device connection/registration state machine (Associable)
//   - Sensor reading debouncing
//
// # Device model
//
// Device types are a closed set: ten actuator types and four sensor types.
// Behaviour is driven entirely by a capability table keyed by type, so
// adding a type means adding one table entry, not a new Go type. Device
// equality is defined by id alone.
//
// # Lifecycle
//
// An Associable wraps a Device with transport-facing state and walks the
// handshake:
//
//	Disconnected → Connected → Subscribed → Registered → operating
//
// with a reverse edge to Disconnected from any state. Registration is
// asynchronous: Register publishes on the registration topic and waits for
// the coordinator's regSuccess on the device's own command topic.
//
// # Concurrency
//
// The transport delivers messages on independent goroutines with no
// cross-topic ordering. Each Associable serialises its own handlers with a
// mutex; distinct devices run fully concurrently.
package device
