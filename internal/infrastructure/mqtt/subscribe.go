package mqtt

import (
	"fmt"
	"slices"
)

// Subscribe registers handler for topic with the configured QoS.
//
// Subscriptions belong to the current session and are forgotten when the
// connection drops; the supervisor subscribes again after reconnecting.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	return c.SubscribeQoS(topic, byte(c.cfg.QoS), handler)
}

// SubscribeQoS registers handler for topic with an explicit maximum QoS.
// The subscription is only recorded once the broker has acknowledged it.
func (c *Client) SubscribeQoS(topic string, qos byte, handler MessageHandler) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case handler == nil:
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	case !c.IsConnected():
		return ErrNotConnected
	}

	token := c.paho.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(ackTimeout) {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	c.mu.Lock()
	c.subs[topic] = qos
	c.mu.Unlock()
	return nil
}

// Unsubscribe stops delivery for topic.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()

	token := c.paho.Unsubscribe(topic)
	if !token.WaitTimeout(ackTimeout) {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, topic, err)
	}
	return nil
}

// Subscriptions returns the topics subscribed on the current session, sorted.
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subs))
	for t := range c.subs {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// SubscriptionCount returns the number of subscriptions on the current session.
func (c *Client) SubscriptionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// HasSubscription reports whether exactly topic is subscribed.
func (c *Client) HasSubscription(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subs[topic]
	return ok
}
