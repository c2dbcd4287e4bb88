package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gpiohub/internal/command"
)

// Logger defines the logging interface for the hub.
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

// Router dispatches decoded commands to their handlers.
type Router struct {
	registry *Registry
	echo     *EchoFilter
	logger   Logger
}

// NewRouter creates a router over registry. echo may be nil.
func NewRouter(registry *Registry, echo *EchoFilter, logger Logger) *Router {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Router{
		registry: registry,
		echo:     echo,
		logger:   logger,
	}
}

// Route invokes the handler registered for cmd.Component.
func (r *Router) Route(ctx context.Context, cmd command.Command) error {
	h, ok := r.registry.Lookup(cmd.Component)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownComponent, cmd.Component)
	}
	return h(ctx, cmd)
}

// HandleMessage decodes and routes one inbound message. Every failure is
// logged here and the message dropped; it never panics.
func (r *Router) HandleMessage(ctx context.Context, topic string, payload []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("command handler panic recovered", "topic", topic, "panic", rec)
		}
	}()

	if r.echo != nil && r.echo.Consume(payload) {
		r.logger.Debug("ignoring own event", "topic", topic)
		return
	}

	cmd, err := command.Decode(payload)
	if err != nil {
		switch {
		case errors.Is(err, command.ErrDecode):
			r.logger.Warn("failed to decode command", "topic", topic, "error", err)
		default:
			r.logger.Warn("invalid command", "topic", topic, "error", err)
		}
		return
	}

	r.logger.Debug("command received", "topic", topic, "component", cmd.Component)

	err = r.Route(ctx, cmd)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownComponent):
		r.logger.Warn("unknown component", "component", cmd.Component)
	case errors.Is(err, command.ErrSchema):
		r.logger.Warn("invalid command", "component", cmd.Component, "error", err)
	default:
		r.logger.Error("command failed", "component", cmd.Component, "error", err)
	}
}
