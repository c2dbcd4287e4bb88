package monitor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of a key.
type State string

const (
	StateAbsent   State = "absent"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Key identifies one monitored device.
type Key struct {
	Component string
	Device    string
}

func (k Key) String() string {
	return k.Component + "/" + k.Device
}

// Config bounds a task. Interval is informational for the manager; the loop
// body does its own pacing.
type Config struct {
	Interval time.Duration
	Duration time.Duration
}

// LoopFunc is a monitor body. It must return when ctx is done. Returning
// a non-nil error other than a context error is logged as an abnormal exit.
type LoopFunc func(ctx context.Context) error

// TaskInfo describes a live task.
type TaskInfo struct {
	ID        string
	Key       Key
	Config    Config
	StartedAt time.Time
	State     State
}

// Logger defines the logging interface for the monitor package.
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

type task struct {
	id        string
	key       Key
	cfg       Config
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	stopping  bool
}

// Manager owns the running monitor tasks, at most one per Key.
type Manager struct {
	logger Logger

	base       context.Context
	baseCancel context.CancelFunc

	mu     sync.Mutex
	tasks  map[Key]*task
	closed bool
}

// NewManager creates an empty manager.
func NewManager(logger Logger) *Manager {
	if logger == nil {
		logger = noopLogger{}
	}
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		logger:     logger,
		base:       base,
		baseCancel: cancel,
		tasks:      make(map[Key]*task),
	}
}

// Start runs body for key, bounded by cfg.Duration.
//
// If key already has a task, that task is cancelled and Start blocks until
// it has exited before installing the replacement. The wait is bounded by
// one iteration of the old loop. Start returns the new task's ID.
func (m *Manager) Start(key Key, cfg Config, body LoopFunc) (string, error) {
	if body == nil {
		return "", fmt.Errorf("%w: nil loop body for %s", ErrInvalidConfig, key)
	}
	if cfg.Duration <= 0 {
		return "", fmt.Errorf("%w: duration must be positive for %s", ErrInvalidConfig, key)
	}

	m.mu.Lock()
	for {
		if m.closed {
			m.mu.Unlock()
			return "", ErrClosed
		}
		prev, ok := m.tasks[key]
		if !ok {
			break
		}
		// Another Start may install a task while we wait, so re-check
		// the slot after every join.
		prev.stopping = true
		prev.cancel()
		m.mu.Unlock()

		m.logger.Debug("replacing monitor", "key", key.String(), "task_id", prev.id)
		<-prev.done

		m.mu.Lock()
	}

	ctx, cancel := context.WithTimeout(m.base, cfg.Duration)
	t := &task{
		id:        uuid.NewString(),
		key:       key,
		cfg:       cfg,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.tasks[key] = t
	m.mu.Unlock()

	go m.run(ctx, t, body)

	return t.id, nil
}

// run executes one task and frees its slot when the body returns.
func (m *Manager) run(ctx context.Context, t *task, body LoopFunc) {
	defer close(t.done)
	defer m.release(t)
	defer t.cancel()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor panic recovered",
				"key", t.key.String(),
				"task_id", t.id,
				"panic", r,
			)
		}
	}()

	m.logger.Info("monitor started",
		"key", t.key.String(),
		"task_id", t.id,
		"interval", t.cfg.Interval,
		"duration", t.cfg.Duration,
	)

	err := body(ctx)

	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		m.logger.Info("monitor stopped",
			"key", t.key.String(),
			"task_id", t.id,
			"reason", stopReason(ctx),
			"ran_for", time.Since(t.startedAt).Round(time.Millisecond),
		)
	default:
		m.logger.Warn("monitor exited with error",
			"key", t.key.String(),
			"task_id", t.id,
			"error", err,
		)
	}
}

func stopReason(ctx context.Context) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "duration elapsed"
	case ctx.Err() != nil:
		return "stopped"
	default:
		return "completed"
	}
}

// release removes t from the map if it still owns the slot.
func (m *Manager) release(t *task) {
	m.mu.Lock()
	if m.tasks[t.key] == t {
		delete(m.tasks, t.key)
	}
	m.mu.Unlock()
}

// Stop cancels the task for key and waits for it to exit. It reports
// whether there was a task to stop; stopping an absent key is a no-op.
func (m *Manager) Stop(key Key) bool {
	m.mu.Lock()
	t, ok := m.tasks[key]
	if ok {
		t.stopping = true
		t.cancel()
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	<-t.done
	return true
}

// StopComponent stops every task whose key belongs to component and
// returns how many were stopped.
func (m *Manager) StopComponent(ctx context.Context, component string) (int, error) {
	return m.stopMatching(ctx, func(k Key) bool { return k.Component == component })
}

// StopAll cancels every task and waits for all of them, or until ctx is done.
func (m *Manager) StopAll(ctx context.Context) error {
	_, err := m.stopMatching(ctx, func(Key) bool { return true })
	return err
}

func (m *Manager) stopMatching(ctx context.Context, match func(Key) bool) (int, error) {
	m.mu.Lock()
	var victims []*task
	for k, t := range m.tasks {
		if match(k) {
			t.stopping = true
			t.cancel()
			victims = append(victims, t)
		}
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, t := range victims {
		g.Go(func() error {
			select {
			case <-t.done:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("waiting for %s: %w", t.key, ctx.Err())
			}
		})
	}
	return len(victims), g.Wait()
}

// Close stops every task and rejects further Starts.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.baseCancel()
	return m.StopAll(ctx)
}

// State returns the lifecycle state of key.
func (m *Manager) State(key Key) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[key]
	switch {
	case !ok:
		return StateAbsent
	case t.stopping:
		return StateStopping
	default:
		return StateRunning
	}
}

// Lookup returns the live task for key.
func (m *Manager) Lookup(key Key) (TaskInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[key]
	if !ok {
		return TaskInfo{}, false
	}
	return t.info(), true
}

// Active returns the keys with a live task, sorted.
func (m *Manager) Active() []Key {
	m.mu.Lock()
	keys := make([]Key, 0, len(m.tasks))
	for k := range m.tasks {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	slices.SortFunc(keys, func(a, b Key) int {
		if c := cmp.Compare(a.Component, b.Component); c != 0 {
			return c
		}
		return cmp.Compare(a.Device, b.Device)
	})
	return keys
}

// Len returns the number of live tasks.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (t *task) info() TaskInfo {
	state := StateRunning
	if t.stopping {
		state = StateStopping
	}
	return TaskInfo{
		ID:        t.id,
		Key:       t.key,
		Config:    t.cfg,
		StartedAt: t.startedAt,
		State:     state,
	}
}
