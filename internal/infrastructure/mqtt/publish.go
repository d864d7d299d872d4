package mqtt

import (
	"fmt"
	"time"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic.
//
// QoS comes from the configuration (at-least-once for this system). After a
// successful send the call sleeps for the configured pacing delay so a burst
// of simulated devices does not overrun the broker.
//
// Retained Messages:
//   - When true, the broker stores the last message for the topic and
//     replays it to new subscribers
//   - Used only for a device's own data publications, never for commands
//     or system topics
//
// Returns nil on success, or a wrapped error describing the failure.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	if pace := c.cfg.GetPace(); pace > 0 {
		time.Sleep(pace)
	}

	return nil
}

// PublishString is a convenience method that publishes a string payload.
func (c *Client) PublishString(topic string, payload string, retained bool) error {
	return c.Publish(topic, []byte(payload), retained)
}
