package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/nerrad567/gpiohub/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultFlushTimeout   = 2 * time.Second
	pingInterval          = 5 * time.Second
	maxPingsOutstanding   = 3

	statusSuffix = ".status"
)

// Logger interface for optional logging support.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler is the callback signature for received messages.
// The returned error is logged.
type MessageHandler = func(subject string, payload []byte) error

// Client is a NATS connection owned by the hub.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	cfg config.NATSConfig

	mu      sync.RWMutex
	nc      *natsgo.Conn
	subs    map[string]*natsgo.Subscription
	closing bool

	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// New builds a client from cfg without connecting.
func New(cfg config.NATSConfig) *Client {
	return &Client{
		cfg:  cfg,
		subs: make(map[string]*natsgo.Subscription),
	}
}

// options returns the connection options. Reconnect is disabled so a lost
// connection surfaces through the disconnect callback.
func (c *Client) options() []natsgo.Option {
	opts := []natsgo.Option{
		natsgo.Name(c.cfg.Name),
		natsgo.NoReconnect(),
		natsgo.Timeout(defaultConnectTimeout),
		natsgo.PingInterval(pingInterval),
		natsgo.MaxPingsOutstanding(maxPingsOutstanding),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			c.handleDisconnect(err)
		}),
	}
	if c.cfg.Token != "" {
		opts = append(opts, natsgo.Token(c.cfg.Token))
	}
	return opts
}

// Connect performs one connection attempt.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if c.IsConnected() {
		return nil
	}

	nc, err := natsgo.Connect(c.cfg.URL, c.options()...)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.cfg.URL, err)
	}

	c.mu.Lock()
	c.nc = nc
	c.closing = false
	clear(c.subs)
	c.mu.Unlock()

	if err := nc.Publish(StatusSubject(c.cfg.Subject), statusPayload(c.cfg.Name, "online", "")); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("failed to publish online status", "error", err)
		}
	}

	return nil
}

func (c *Client) handleDisconnect(err error) {
	c.mu.RLock()
	closing := c.closing
	c.mu.RUnlock()
	if closing {
		return
	}

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// conn returns the live connection or ErrNotConnected.
func (c *Client) conn() (*natsgo.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.nc == nil || !c.nc.IsConnected() {
		return nil, ErrNotConnected
	}
	return c.nc, nil
}

// Publish sends payload on subject.
func (c *Client) Publish(subject string, payload []byte) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	nc, err := c.conn()
	if err != nil {
		return err
	}
	if err := nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers handler for subject. Handlers run on the
// subscription's goroutine and are wrapped with panic recovery.
func (c *Client) Subscribe(subject string, handler MessageHandler) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	nc, err := c.conn()
	if err != nil {
		return err
	}

	sub, err := nc.Subscribe(subject, c.wrapHandler(handler))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, subject, err)
	}
	if err := nc.FlushTimeout(defaultFlushTimeout); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, subject, err)
	}

	c.mu.Lock()
	if old, ok := c.subs[subject]; ok {
		_ = old.Unsubscribe()
	}
	c.subs[subject] = sub
	c.mu.Unlock()
	return nil
}

// SubscriptionCount returns the number of subscriptions on the current connection.
func (c *Client) SubscriptionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nc != nil && c.nc.IsConnected()
}

// Close publishes a graceful offline status and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	nc := c.nc
	c.closing = true
	c.mu.Unlock()

	if nc == nil {
		return nil
	}
	if nc.IsConnected() {
		_ = nc.Publish(StatusSubject(c.cfg.Subject), statusPayload(c.cfg.Name, "offline", "graceful_shutdown"))
		_ = nc.FlushTimeout(defaultFlushTimeout)
	}
	nc.Close()
	return nil
}

// SetOnDisconnect sets a callback to be invoked when the connection is lost.
// It is not invoked for Close.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler adapts handler to a nats callback with panic recovery.
func (c *Client) wrapHandler(handler MessageHandler) natsgo.MsgHandler {
	return func(msg *natsgo.Msg) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("NATS handler panic recovered",
						"subject", msg.Subject,
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Subject, msg.Data); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("NATS handler returned error",
					"subject", msg.Subject,
					"error", err,
				)
			}
		}
	}
}

// StatusSubject returns the status subject for the hub subject.
func StatusSubject(subject string) string {
	return subject + statusSuffix
}

// status is the presence message published on StatusSubject.
type status struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func statusPayload(name, state, reason string) []byte {
	// A struct of strings always marshals.
	b, _ := json.Marshal(status{
		Status:    state,
		ClientID:  name,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}
