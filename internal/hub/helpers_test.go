package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gpiohub/internal/command"
	"github.com/nerrad567/gpiohub/internal/hardware"
	"github.com/nerrad567/gpiohub/internal/monitor"
)

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level, msg})
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *recordingLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}

func (l *recordingLogger) levelCount(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// countingHardware records actions before handing them to the simulator.
type countingHardware struct {
	*hardware.Simulated

	mu      sync.Mutex
	actions []hardware.Action
}

func (c *countingHardware) Actuate(ctx context.Context, a hardware.Action) error {
	c.mu.Lock()
	c.actions = append(c.actions, a)
	c.mu.Unlock()
	return c.Simulated.Actuate(ctx, a)
}

func (c *countingHardware) recorded() []hardware.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]hardware.Action(nil), c.actions...)
}

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(_ string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, append([]byte(nil), payload...))
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

// since decodes the payloads published from index n on.
func (p *fakePublisher) since(t *testing.T, n int) []command.Command {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []command.Command
	for _, payload := range p.payloads[n:] {
		cmd, err := command.Decode(payload)
		require.NoError(t, err)
		out = append(out, cmd)
	}
	return out
}

// testHub wires the full dispatch path on simulated hardware.
type testHub struct {
	hw       *countingHardware
	pub      *fakePublisher
	echo     *EchoFilter
	monitors *monitor.Manager
	router   *Router
	logger   *recordingLogger
}

func fastTimings() monitor.Timings {
	return monitor.Timings{
		ButtonPoll:   5 * time.Millisecond,
		ButtonSettle: 10 * time.Millisecond,
		KeypadPoll:   5 * time.Millisecond,
		KeypadSettle: 10 * time.Millisecond,
		LDRPeriod:    5 * time.Millisecond,
	}
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()

	logger := &recordingLogger{}
	hw := &countingHardware{Simulated: hardware.NewSimulated(7)}
	pub := &fakePublisher{}
	echo := NewEchoFilter(pub, 0)
	monitors := monitor.NewManager(nil)
	timings := fastTimings()
	sensors := monitor.NewSensors(hw, echo, "devices", timings, nil)

	devices := NewDevices(hw, monitors, sensors, DeviceOptions{
		DefaultInterval: time.Second,
		DefaultDuration: 10 * time.Second,
		KeypadRows:      []int{2, 3, 4, 5},
		KeypadColumns:   []int{6, 7, 8, 9},
		Timings:         timings,
	})
	registry, err := DefaultRegistry(devices)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = monitors.Close(ctx)
	})

	return &testHub{
		hw:       hw,
		pub:      pub,
		echo:     echo,
		monitors: monitors,
		router:   NewRouter(registry, echo, logger),
		logger:   logger,
	}
}

func (h *testHub) send(payload string) {
	h.router.HandleMessage(context.Background(), "devices", []byte(payload))
}
