package mqtt

import "fmt"

// maxPayloadSize caps outbound payloads at 1 MiB.
const maxPayloadSize = 1 << 20

// Publish sends a non-retained message with the configured QoS. Monitors
// publish their events through it concurrently.
func (c *Client) Publish(topic string, payload []byte) error {
	return c.PublishQoS(topic, payload, byte(c.cfg.QoS), false)
}

// PublishRetained sends a retained message with the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.PublishQoS(topic, payload, byte(c.cfg.QoS), true)
}

// PublishQoS sends a message and waits for the broker's acknowledgement.
// Failures are counted and returned; nothing is queued for later.
func (c *Client) PublishQoS(topic string, payload []byte, qos byte, retained bool) error {
	err := c.publish(topic, payload, qos, retained)
	if err != nil {
		c.pubFailed.Add(1)
		return err
	}
	c.published.Add(1)
	return nil
}

func (c *Client) publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}

	token := c.paho.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(ackTimeout) {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}
