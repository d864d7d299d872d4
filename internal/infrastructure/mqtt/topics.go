package mqtt

import "fmt"

// Fixed system topics shared by every device and the coordinator.
// Consumers must not subscribe to or expect messages on any other topic.
const (
	// TopicRegistration carries register messages and disconnect notices.
	TopicRegistration = "registration"

	// TopicUpdate carries command echoes after a device applies a command.
	TopicUpdate = "update"

	// TopicLog carries timestamped log entries from devices.
	TopicLog = "log"

	// TopicSensorUpdate carries debounced sensor readings.
	TopicSensorUpdate = "sensorUpdate"

	// TopicBroadcast carries coordinator announcements to every device.
	TopicBroadcast = "broadcast"
)

// Topics provides builders for Domus MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Per-device topics use the scheme {room}/{deviceType}/{id}/{direction}:
//
//	topics := mqtt.Topics{}
//	dataTopic := topics.DeviceData("kitchen", "light", "light-1")
//	// Returns: "kitchen/light/light-1/From"
type Topics struct{}

// =============================================================================
// System Topics
// =============================================================================

// Registration returns the fixed registration topic.
func (Topics) Registration() string { return TopicRegistration }

// Update returns the fixed update topic.
func (Topics) Update() string { return TopicUpdate }

// Log returns the fixed log topic.
func (Topics) Log() string { return TopicLog }

// SensorUpdate returns the fixed sensor reading topic.
func (Topics) SensorUpdate() string { return TopicSensorUpdate }

// Broadcast returns the fixed broadcast topic.
func (Topics) Broadcast() string { return TopicBroadcast }

// =============================================================================
// Per-Device Topics
// =============================================================================

// DeviceData returns the topic a device publishes its own data on.
//
// Example: kitchen/light/light-1/From
func (Topics) DeviceData(room, deviceType, id string) string {
	return fmt.Sprintf("%s/%s/%s/From", room, deviceType, id)
}

// DeviceCommand returns the topic a device receives commands on.
//
// Example: kitchen/light/light-1/To
func (Topics) DeviceCommand(room, deviceType, id string) string {
	return fmt.Sprintf("%s/%s/%s/To", room, deviceType, id)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllDeviceData returns a pattern matching every device data topic.
//
// Pattern: +/+/+/From
func (Topics) AllDeviceData() string { return "+/+/+/From" }

// AllDeviceCommands returns a pattern matching every device command topic.
//
// Pattern: +/+/+/To
func (Topics) AllDeviceCommands() string { return "+/+/+/To" }
