package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gpiohub/internal/command"
	"github.com/nerrad567/gpiohub/internal/hardware"
	"github.com/nerrad567/gpiohub/internal/monitor"
)

func TestRouter_LEDOn(t *testing.T) {
	h := newTestHub(t)

	h.send(`{"component":"led","data":{"pin":17,"state":"ON"}}`)

	actions := h.hw.recorded()
	require.Len(t, actions, 1)
	assert.Equal(t, hardware.DigitalWrite{Pin: 17, High: true}, actions[0])

	high, ok := h.hw.Output(17)
	assert.True(t, ok)
	assert.True(t, high)
	assert.Zero(t, h.logger.levelCount("warn"))
	assert.Zero(t, h.logger.levelCount("error"))
}

func TestRouter_RepeatedMonitorLeavesOneTask(t *testing.T) {
	h := newTestHub(t)
	h.hw.SetInput(5, true)
	key := monitor.Key{Component: command.ComponentPIR, Device: "5"}

	h.send(`{"component":"PIR_SENSOR","data":{"pin":5,"interval":1,"duration":3}}`)
	first, ok := h.monitors.Lookup(key)
	require.True(t, ok)
	require.Eventually(t, func() bool { return h.pub.count() >= 1 }, time.Second, 5*time.Millisecond)

	h.send(`{"component":"PIR_SENSOR","data":{"pin":5,"interval":1,"duration":5}}`)
	second, ok := h.monitors.Lookup(key)
	require.True(t, ok)
	replacedAt := h.pub.count()

	assert.NotEqual(t, first.ID, second.ID, "second command replaces the first task")
	assert.Equal(t, 1, h.monitors.Len())
	assert.Equal(t, monitor.StateRunning, h.monitors.State(key))

	for _, ev := range h.pub.since(t, 0)[:replacedAt] {
		d, err := ev.Int("duration")
		require.NoError(t, err)
		assert.Equal(t, 3, d)
	}

	require.Eventually(t, func() bool { return h.pub.count() > replacedAt }, time.Second, 5*time.Millisecond)
	for _, ev := range h.pub.since(t, replacedAt) {
		assert.Equal(t, command.ComponentPIR, ev.Component)
		d, err := ev.Int("duration")
		require.NoError(t, err)
		assert.Equal(t, 5, d, "readings after the replace come from the second task only")
	}
}

func TestRouter_MalformedPayload(t *testing.T) {
	for _, payload := range []string{
		`{not json`,
		`{"component":"led","data":`,
	} {
		t.Run(payload, func(t *testing.T) {
			h := newTestHub(t)

			h.send(payload)

			assert.Equal(t, 1, h.logger.count("warn", "failed to decode command"))
			assert.Empty(t, h.hw.recorded())
			assert.Zero(t, h.monitors.Len())
		})
	}
}

func TestRouter_OversizedIntervalRejected(t *testing.T) {
	h := newTestHub(t)

	h.send(`{"component":"DHT11","data":{"pin":4,"interval":10000000000,"duration":1}}`)
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, 1, h.logger.count("warn", "invalid command"))
	assert.Zero(t, h.logger.count("error", "command failed"))
	assert.Zero(t, h.monitors.Len())
	assert.Zero(t, h.pub.count())
}

func TestRouter_UnknownComponent(t *testing.T) {
	h := newTestHub(t)

	h.send(`{"component":"toaster","data":{}}`)

	assert.Equal(t, 1, h.logger.count("warn", "unknown component"))
	assert.Empty(t, h.hw.recorded())
}

func TestRouter_SchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing component", `{"data":{"pin":17}}`},
		{"missing pin", `{"component":"led","data":{"state":"ON"}}`},
		{"bad servo angle", `{"component":"servo","data":{"pin":18,"angle":45}}`},
		{"bad direction", `{"component":"stepper_motor","data":{"pins":[1,2,3,4],"direction":"up"}}`},
		{"short rgb pins", `{"component":"light","data":{"pins":[1,2],"color":[0,0,0]}}`},
		{"color out of range", `{"component":"light","data":{"pins":[1,2,3],"color":[0,101,0]}}`},
		{"zero interval", `{"component":"DHT11","data":{"pin":4,"interval":0}}`},
		{"zero duration", `{"component":"PIR_SENSOR","data":{"pin":5,"duration":0}}`},
		{"interval overflows", `{"component":"PIR_SENSOR","data":{"pin":5,"interval":9223372037}}`},
		{"duration overflows", `{"component":"DHT11","data":{"pin":4,"duration":1e300}}`},
		{"bad monitor action", `{"component":"monitor","data":{"action":"pause"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHub(t)
			h.send(tt.payload)

			assert.Equal(t, 1, h.logger.count("warn", "invalid command"))
			assert.Empty(t, h.hw.recorded())
			assert.Zero(t, h.monitors.Len())
		})
	}
}

func TestRouter_HandlerErrorLogged(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("led", func(context.Context, command.Command) error {
		return errors.New("gpio busy")
	}))
	logger := &recordingLogger{}
	router := NewRouter(r, nil, logger)

	router.HandleMessage(context.Background(), "devices", []byte(`{"component":"led","data":{}}`))

	assert.Equal(t, 1, logger.count("error", "command failed"))
}

func TestRouter_PanicRecovered(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("led", func(context.Context, command.Command) error {
		panic("boom")
	}))
	logger := &recordingLogger{}
	router := NewRouter(r, nil, logger)

	assert.NotPanics(t, func() {
		router.HandleMessage(context.Background(), "devices", []byte(`{"component":"led","data":{}}`))
	})
	assert.Equal(t, 1, logger.count("error", "command handler panic recovered"))

	// The router keeps working afterwards.
	require.NoError(t, r.Register("relay", nopHandler))
	router.HandleMessage(context.Background(), "devices", []byte(`{"component":"relay","data":{}}`))
	assert.Equal(t, 1, logger.levelCount("error"))
}

func TestRouter_DropsOwnEvents(t *testing.T) {
	h := newTestHub(t)
	payload := []byte(`{"component":"led","data":{"pin":17,"state":"ON"}}`)

	require.NoError(t, h.echo.Publish("devices", payload))
	h.router.HandleMessage(context.Background(), "devices", payload)

	assert.Empty(t, h.hw.recorded(), "own event must not be executed")
	assert.Equal(t, 1, h.logger.count("debug", "ignoring own event"))

	// An identical payload from someone else is a real command.
	h.router.HandleMessage(context.Background(), "devices", payload)
	assert.Len(t, h.hw.recorded(), 1)
}

func TestRouter_Route(t *testing.T) {
	r := NewRegistry()
	var got command.Command
	require.NoError(t, r.Register("buzzer", func(_ context.Context, cmd command.Command) error {
		got = cmd
		return nil
	}))
	router := NewRouter(r, nil, nil)

	cmd := command.New("buzzer", map[string]any{"pin": 22})
	require.NoError(t, router.Route(context.Background(), cmd))
	assert.Equal(t, "buzzer", got.Component)

	err := router.Route(context.Background(), command.New("kettle", nil))
	assert.ErrorIs(t, err, ErrUnknownComponent)
}

func TestRouter_MonitorEventsReachPublisher(t *testing.T) {
	h := newTestHub(t)

	h.send(`{"component":"Button","data":{"pin":21,"duration":1}}`)

	assert.Eventually(t, func() bool { return h.pub.count() > 0 }, 2*time.Second, 5*time.Millisecond)
}
