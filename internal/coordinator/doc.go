// Package coordinator implements the fleet controller.
//
// The coordinator shares no memory with devices; everything it knows arrives
// over the broker. It subscribes to the system topics (registration, update,
// log, sensorUpdate), acknowledges registrations on each device's own command
// topic, and maintains an in-memory registry of the devices it has admitted.
// Telemetry from the sensorUpdate topic can optionally be forwarded to a
// time-series sink.
//
// Shutdown announces departure on the broadcast topic so every device powers
// off and forgets its registration.
package coordinator
