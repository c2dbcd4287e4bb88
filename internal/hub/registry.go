package hub

import (
	"context"
	"fmt"
	"slices"

	"github.com/nerrad567/gpiohub/internal/command"
)

// HandlerFunc executes one command. Handlers for sensors must hand their
// loop to the monitor manager and return immediately.
type HandlerFunc func(ctx context.Context, cmd command.Command) error

// Registry maps component identifiers to handlers. It is filled once at
// startup; lookups afterwards are read-only and need no locking.
type Registry struct {
	handlers map[string]HandlerFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds component to h. Several components may share a handler.
func (r *Registry) Register(component string, h HandlerFunc) error {
	if component == "" || h == nil {
		return fmt.Errorf("hub: register %q: empty component or nil handler", component)
	}
	if _, ok := r.handlers[component]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateComponent, component)
	}
	r.handlers[component] = h
	return nil
}

// Lookup returns the handler for component. Matching is case-sensitive.
func (r *Registry) Lookup(component string) (HandlerFunc, bool) {
	h, ok := r.handlers[component]
	return h, ok
}

// Components returns the registered identifiers, sorted.
func (r *Registry) Components() []string {
	out := make([]string, 0, len(r.handlers))
	for c := range r.handlers {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
