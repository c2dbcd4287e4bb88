package connection

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultDelay is the wait between failed connection attempts.
const DefaultDelay = 5 * time.Second

// State represents the supervisor's view of the broker connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// MessageHandler receives inbound messages on the command topic.
type MessageHandler func(topic string, payload []byte)

// Transport is the part of a messaging client the supervisor drives.
// Both the MQTT and NATS clients satisfy it.
type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, handler func(topic string, payload []byte) error) error
}

// Config holds supervisor settings.
type Config struct {
	// Topic is the command topic subscribed after every connect.
	Topic string

	// Handler receives every message on Topic.
	Handler MessageHandler

	// Delay between failed attempts. Zero selects DefaultDelay.
	Delay time.Duration

	// OnReconnect is called after a reconnect succeeds (optional).
	OnReconnect func(attempts int)
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats contains connection statistics.
type Stats struct {
	State      State
	Attempts   int // connection attempts, including the first
	Reconnects int // successful connects after a loss
	LastError  error
	Since      time.Time // time of the last state change
}

// Supervisor owns the connect/subscribe lifecycle of a Transport.
type Supervisor struct {
	transport Transport
	cfg       Config
	logger    Logger

	lost chan error

	mu         sync.RWMutex
	state      State
	attempts   int
	reconnects int
	lastErr    error
	since      time.Time
}

// NewSupervisor creates a supervisor for transport.
func NewSupervisor(transport Transport, cfg Config, logger Logger) *Supervisor {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Supervisor{
		transport: transport,
		cfg:       cfg,
		logger:    logger,
		lost:      make(chan error, 1),
		state:     StateDisconnected,
		since:     time.Now(),
	}
}

// Run connects, subscribes and then keeps the connection alive until ctx
// is cancelled. It returns nil on cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.cfg.Topic == "" || s.cfg.Handler == nil {
		return ErrInvalidConfig
	}

	if !s.establish(ctx, false) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			s.setState(StateDisconnected)
			return nil
		case err := <-s.lost:
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			s.setState(StateDisconnected)
			s.logger.Warn("connection lost", "error", err, "retry_in", s.cfg.Delay)

			if !s.establish(ctx, true) {
				return nil
			}
		}
	}
}

// NotifyDisconnected reports a lost connection. It never blocks; losses
// reported while one is already pending are merged.
func (s *Supervisor) NotifyDisconnected(err error) {
	select {
	case s.lost <- err:
	default:
	}
}

// establish retries connect+subscribe with a fixed delay until it succeeds
// or ctx is done. It reports false only on cancellation.
func (s *Supervisor) establish(ctx context.Context, reconnect bool) bool {
	// A loss reported before this attempt is covered by it.
	select {
	case <-s.lost:
	default:
	}

	attempt := 0
	for {
		attempt++
		s.setState(StateConnecting)

		s.mu.Lock()
		s.attempts++
		s.mu.Unlock()

		err := s.connect(ctx)
		if err == nil {
			s.mu.Lock()
			if reconnect {
				s.reconnects++
			}
			s.lastErr = nil
			s.mu.Unlock()
			s.setState(StateConnected)

			if reconnect {
				s.logger.Info("reconnected", "topic", s.cfg.Topic, "attempts", attempt)
				if s.cfg.OnReconnect != nil {
					s.cfg.OnReconnect(attempt)
				}
			} else {
				s.logger.Info("connected", "topic", s.cfg.Topic)
			}
			return true
		}

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.setState(StateDisconnected)

		if ctx.Err() != nil {
			return false
		}

		s.logger.Warn("connection attempt failed",
			"attempt", attempt,
			"error", err,
			"retry_in", s.cfg.Delay,
		)

		t := time.NewTimer(s.cfg.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}

// connect attaches the transport and subscribes the command topic.
func (s *Supervisor) connect(ctx context.Context) error {
	if err := s.transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	handler := s.cfg.Handler
	err := s.transport.Subscribe(s.cfg.Topic, func(topic string, payload []byte) error {
		handler(topic, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.cfg.Topic, err)
	}
	return nil
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != state {
		s.state = state
		s.since = time.Now()
	}
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConnected reports whether the last attempt succeeded and no loss has
// been reported since.
func (s *Supervisor) IsConnected() bool {
	return s.State() == StateConnected
}

// Stats returns a snapshot of connection statistics.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		State:      s.state,
		Attempts:   s.attempts,
		Reconnects: s.reconnects,
		LastError:  s.lastErr,
		Since:      s.since,
	}
}
