package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gpiohub/internal/command"
)

func nopHandler(context.Context, command.Command) error { return nil }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("led", nopHandler))
	require.NoError(t, r.Register("relay", nopHandler))

	h, ok := r.Lookup("led")
	assert.True(t, ok)
	assert.NotNil(t, h)

	_, ok = r.Lookup("LED")
	assert.False(t, ok, "lookup is case-sensitive")

	assert.Equal(t, []string{"led", "relay"}, r.Components())
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("led", nopHandler))

	err := r.Register("led", nopHandler)
	assert.ErrorIs(t, err, ErrDuplicateComponent)
}

func TestRegistry_Invalid(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", nopHandler))
	assert.Error(t, r.Register("led", nil))
}

func TestDefaultRegistry_Components(t *testing.T) {
	d := NewDevices(nil, nil, nil, DeviceOptions{})
	r, err := DefaultRegistry(d)
	require.NoError(t, err)

	want := []string{
		command.ComponentLCD,
		command.ComponentLDR,
		command.ComponentPIR,
		command.ComponentUltrasonic,
		command.ComponentButton,
		command.ComponentBuzzer,
		command.ComponentDHT11,
		command.ComponentKeypad,
		command.ComponentLED,
		command.ComponentLight,
		command.ComponentMonitor,
		command.ComponentRelay,
		command.ComponentServo,
		command.ComponentStepper,
	}
	assert.ElementsMatch(t, want, r.Components())
}
