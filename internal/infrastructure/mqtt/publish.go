package mqtt

import (
	"fmt"
)

// QoS levels used on the Smart Lock bus.
const (
	// QoSAtMostOnce is used for best-effort traffic (camera frames, most notices).
	QoSAtMostOnce byte = 0

	// QoSAtLeastOnce is used for presence and the retained state snapshot.
	QoSAtLeastOnce byte = 1

	// QoSExactlyOnce is used for access, control and system subscriptions and
	// for granted events. Receivers must still tolerate duplicates.
	QoSExactlyOnce byte = 2
)

// Maximum payload size for MQTT messages (1MB).
// Camera frames are the largest payloads on the bus.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "smartlock/events")
//   - payload: The message payload (JSON, or base64 JPEG on the camera topic)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Delivery is at-least-once at best; duplicate suppression is the
// receiver's job.
//
// Example:
//
//	err := client.Publish(mqtt.Topics{}.Events(), payload, mqtt.QoSExactlyOnce, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishRetained publishes a retained message at QoS 1.
//
// Use for snapshots where new subscribers should receive the current state.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, QoSAtLeastOnce, true)
}
