package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gpiohub/internal/infrastructure/config"
)

// MessageHandler receives one message from a subscribed topic.
//
// paho calls handlers from its own goroutines. A returned error is logged;
// the message is acknowledged either way.
type MessageHandler = func(topic string, payload []byte) error

// Logger is the subset of logging.Logger the client uses.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Stats counts traffic since the client was created.
type Stats struct {
	Published       uint64
	PublishFailures uint64
	Received        uint64
}

// Client is the hub's MQTT transport.
//
// It performs single connection attempts and reports losses through
// SetOnDisconnect; reconnecting is left to connection.Supervisor, which
// also re-subscribes after every connect. Safe for concurrent use.
type Client struct {
	paho    pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	mu           sync.RWMutex
	connected    bool
	subs         map[string]byte // topic -> qos, current session only
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger

	published atomic.Uint64
	pubFailed atomic.Uint64
	received  atomic.Uint64
}

// New builds a client from cfg. It does not connect.
func New(cfg config.MQTTConfig) *Client {
	opts := clientOptions(cfg)
	c := newClient(cfg, nil)
	c.options = opts

	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.paho = pahomqtt.NewClient(opts)
	return c
}

func newClient(cfg config.MQTTConfig, p pahomqtt.Client) *Client {
	return &Client{
		paho:   p,
		cfg:    cfg,
		subs:   make(map[string]byte),
		logger: noopLogger{},
	}
}

// Connect makes one attempt to reach the broker. It is a no-op when the
// client is already connected.
func (c *Client) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	token := c.paho.Connect()
	timer := time.NewTimer(connectTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, brokerURL(c.cfg.Broker), err)
		}
	case <-timer.C:
		return fmt.Errorf("%w: %w after %v", ErrConnectionFailed, ErrTimeout, connectTimeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	}

	// The connect handler runs asynchronously; mark the state now so the
	// caller can subscribe straight away.
	c.setConnected(true)
	return nil
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) handleConnect() {
	c.setConnected(true)
	c.paho.Publish(StatusTopic(c.cfg.Topic), byte(c.cfg.QoS), true,
		statusPayload(c.cfg.Broker.ClientID, StatusOnline, ""))

	c.mu.RLock()
	cb := c.onConnect
	c.mu.RUnlock()
	if cb != nil {
		cb()
	}
}

// handleDisconnect drops the session's subscriptions with the connection
// and notifies the supervisor.
func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	c.connected = false
	clear(c.subs)
	cb := c.onDisconnect
	c.mu.Unlock()

	if cb != nil {
		cb(err)
	}
}

// Close publishes a graceful offline status and disconnects. It is safe
// to call on a client that never connected.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.paho.Publish(StatusTopic(c.cfg.Topic), byte(c.cfg.QoS), true,
			statusPayload(c.cfg.Broker.ClientID, StatusOffline, ReasonShutdown))
		token.WaitTimeout(ackTimeout)
	}

	c.paho.Disconnect(disconnectQuiesce)
	c.setConnected(false)
	return nil
}

// HealthCheck returns ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the client and paho both consider the link up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.paho != nil && c.paho.IsConnected()
}

// SetOnConnect sets a callback run after each successful connect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection is lost. It is
// not called for Close.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets the logger for handler errors and panics. nil silences them.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// Stats returns the traffic counters.
func (c *Client) Stats() Stats {
	return Stats{
		Published:       c.published.Load(),
		PublishFailures: c.pubFailed.Load(),
		Received:        c.received.Load(),
	}
}

// wrapHandler adapts handler to paho, recovering panics so one bad message
// cannot kill paho's delivery goroutine.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.received.Add(1)
		defer func() {
			if r := recover(); r != nil {
				c.getLogger().Error("mqtt handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.getLogger().Warn("mqtt handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
