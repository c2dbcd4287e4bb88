package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gpiohub/internal/hardware"
)

const topic = "gpiohub/devices"

func fastTimings() Timings {
	return Timings{
		ButtonPoll:   time.Millisecond,
		ButtonSettle: time.Millisecond,
		KeypadPoll:   time.Millisecond,
		KeypadSettle: time.Millisecond,
		LDRPeriod:    time.Millisecond,
	}
}

// runLoop runs body to completion under a long duration. The fake hardware
// detaches when its script runs out, which ends the loop.
func runLoop(t *testing.T, body LoopFunc) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return body(ctx)
}

func TestSensors_DurationBoundsReads(t *testing.T) {
	hw := &fakeHardware{repeat: &hardware.Reading{Temperature: 21, Humidity: 80}}
	pub := &fakePublisher{}
	s := NewSensors(hw, pub, topic, fastTimings(), nil)
	m := NewManager(nil)

	const (
		interval = 20 * time.Millisecond
		duration = 100 * time.Millisecond
	)
	key := Key{Component: "DHT11", Device: "4"}

	start := time.Now()
	_, err := m.Start(key, Config{Interval: interval, Duration: duration}, s.DHT11(key, 4, interval))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.State(key) == StateAbsent },
		2*time.Second, time.Millisecond)
	elapsed := time.Since(start)

	maxReads := int(math.Ceil(float64(duration) / float64(interval)))
	assert.LessOrEqual(t, hw.readCount(), maxReads)
	assert.GreaterOrEqual(t, hw.readCount(), 1)
	assert.Less(t, elapsed, duration+interval+50*time.Millisecond)
	assert.Len(t, pub.all(), hw.readCount())
}

func TestSensors_DHT11Payload(t *testing.T) {
	hw := &fakeHardware{script: []scripted{
		{reading: hardware.Reading{Temperature: 21.456, Humidity: 80.001}},
	}}
	pub := &fakePublisher{}
	s := NewSensors(hw, pub, topic, fastTimings(), nil)

	err := runLoop(t, s.DHT11(Key{"DHT11", "4"}, 4, time.Millisecond))
	assert.ErrorIs(t, err, hardware.ErrDetached)

	require.Len(t, pub.all(), 1)
	assert.JSONEq(t, `{"temperature":21.46,"humidity":80}`, pub.all()[0])
	assert.Equal(t, []string{topic}, pub.topics)
	assert.Equal(t, hardware.DHT11{Pin: 4}, hw.probes[0])
}

func TestSensors_UltrasonicPayload(t *testing.T) {
	hw := &fakeHardware{script: []scripted{
		{reading: hardware.Reading{Distance: 57.123}},
	}}
	pub := &fakePublisher{}
	s := NewSensors(hw, pub, topic, fastTimings(), nil)

	_ = runLoop(t, s.Ultrasonic(Key{"Ultrasonic sensor", "15:14"}, 15, 14, time.Millisecond))

	require.Len(t, pub.all(), 1)
	assert.JSONEq(t, `{"component":"Ultrasonic sensor","data":{"distance":57.12}}`, pub.all()[0])
	assert.Equal(t, hardware.Ultrasonic{Trig: 15, Echo: 14}, hw.probes[0])
}

func TestSensors_PIRPublishesTransitionsOnly(t *testing.T) {
	hw := &fakeHardware{script: readings(false, false, true, true, true, false)}
	pub := &fakePublisher{}
	s := NewSensors(hw, pub, topic, fastTimings(), nil)

	_ = runLoop(t, s.PIR(Key{"PIR_SENSOR", "5"}, 5, time.Millisecond, 10*time.Second))

	got := pub.all()
	require.Len(t, got, 3)
	assert.JSONEq(t, `{"component":"PIR_SENSOR","data":{"pin":5,"message":"No Motion Detected","interval":0,"duration":10}}`, got[0])
	assert.JSONEq(t, `{"component":"PIR_SENSOR","data":{"pin":5,"message":"Motion Detected","interval":0,"duration":10}}`, got[1])
	assert.JSONEq(t, `{"component":"PIR_SENSOR","data":{"pin":5,"message":"No Motion Detected","interval":0,"duration":10}}`, got[2])
}

func TestSensors_ButtonPressedIsLow(t *testing.T) {
	hw := &fakeHardware{script: readings(true, true, false, false, true)}
	pub := &fakePublisher{}
	s := NewSensors(hw, pub, topic, fastTimings(), nil)

	_ = runLoop(t, s.Button(Key{"Button", "18"}, 18))

	got := pub.all()
	require.Len(t, got, 3)
	assert.JSONEq(t, `{"component":"Button","data":{"pin":18,"pressed":false}}`, got[0])
	assert.JSONEq(t, `{"component":"Button","data":{"pin":18,"pressed":true}}`, got[1])
	assert.JSONEq(t, `{"component":"Button","data":{"pin":18,"pressed":false}}`, got[2])
	assert.Equal(t, hardware.DigitalInput{Pin: 18, PullUp: true}, hw.probes[0])
}

func TestSensors_ButtonSettlesAfterTransition(t *testing.T) {
	hw := &fakeHardware{script: readings(true, true, true, true)}
	pub := &fakePublisher{}
	timings := fastTimings()
	timings.ButtonSettle = 60 * time.Millisecond
	s := NewSensors(hw, pub, topic, timings, nil)

	start := time.Now()
	_ = runLoop(t, s.Button(Key{"Button", "18"}, 18))

	// One transition (the first reading) means one settle wait, not four.
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 4*60*time.Millisecond)
	assert.Len(t, pub.all(), 1)
}

func TestSensors_KeypadPublishesKeys(t *testing.T) {
	hw := &fakeHardware{script: []scripted{
		{reading: hardware.Reading{}},
		{reading: hardware.Reading{Key: "5"}},
		{reading: hardware.Reading{}},
		{reading: hardware.Reading{Key: "#"}},
	}}
	pub := &fakePublisher{}
	s := NewSensors(hw, pub, topic, fastTimings(), nil)

	rows, cols := []int{2, 3, 4, 5}, []int{6, 7, 8, 9}
	_ = runLoop(t, s.Keypad(Key{"Keypad", "keypad"}, rows, cols))

	got := pub.all()
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"component":"Keypad","data":{"key":"5"}}`, got[0])
	assert.JSONEq(t, `{"component":"Keypad","data":{"key":"#"}}`, got[1])
	assert.Equal(t, hardware.Keypad{Rows: rows, Columns: cols}, hw.probes[0])
}

func TestSensors_LDRDrivesLightAndSwitchesOffOnExit(t *testing.T) {
	hw := &fakeHardware{script: []scripted{
		{reading: hardware.Reading{Level: 400}},
		{reading: hardware.Reading{Level: 1500}},
		{reading: hardware.Reading{Level: 999}},
	}}
	pub := &fakePublisher{}
	s := NewSensors(hw, pub, topic, fastTimings(), nil)

	_ = runLoop(t, s.LDR(Key{"LDR Sensor", "25"}, 25, 26, 1000))

	assert.Equal(t, []hardware.DigitalWrite{
		{Pin: 26, High: true},
		{Pin: 26, High: false},
		{Pin: 26, High: true},
		{Pin: 26, High: false}, // exit
	}, hw.writes())
	assert.Empty(t, pub.all())
}

func TestSensors_LDRLightOffWhenStopped(t *testing.T) {
	hw := &fakeHardware{repeat: &hardware.Reading{Level: 10}}
	s := NewSensors(hw, &fakePublisher{}, topic, fastTimings(), nil)
	m := NewManager(nil)
	key := Key{"LDR Sensor", "25"}

	_, err := m.Start(key, Config{Duration: time.Minute}, s.LDR(key, 25, 26, 1000))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(hw.writes()) >= 2 }, time.Second, time.Millisecond)

	require.True(t, m.Stop(key))
	writes := hw.writes()
	assert.Equal(t, hardware.DigitalWrite{Pin: 26, High: false}, writes[len(writes)-1])
}

func TestSensors_TransientErrorsContinue(t *testing.T) {
	logger := &recordingLogger{}
	hw := &fakeHardware{script: []scripted{
		{err: fmt.Errorf("%w: checksum mismatch", hardware.ErrHardware)},
		{reading: hardware.Reading{Temperature: 20, Humidity: 70}},
		{err: fmt.Errorf("%w: checksum mismatch", hardware.ErrHardware)},
	}}
	pub := &fakePublisher{}
	s := NewSensors(hw, pub, topic, fastTimings(), logger)

	err := runLoop(t, s.DHT11(Key{"DHT11", "4"}, 4, time.Millisecond))

	assert.ErrorIs(t, err, hardware.ErrDetached)
	assert.Equal(t, 4, hw.readCount())
	assert.Len(t, pub.all(), 1)
	assert.Equal(t, 2, logger.count("warn", "monitor read failed"))
}

func TestSensors_PublishFailureIsLogged(t *testing.T) {
	logger := &recordingLogger{}
	hw := &fakeHardware{script: []scripted{
		{reading: hardware.Reading{Distance: 10}},
		{reading: hardware.Reading{Distance: 11}},
	}}
	pub := &fakePublisher{err: errors.New("mqtt: client not connected")}
	s := NewSensors(hw, pub, topic, fastTimings(), logger)

	_ = runLoop(t, s.Ultrasonic(Key{"Ultrasonic sensor", "15:14"}, 15, 14, time.Millisecond))

	assert.Equal(t, 3, hw.readCount())
	assert.Equal(t, 2, logger.count("warn", "failed to publish event"))
}

func TestSensors_PermanentErrorFreesSlot(t *testing.T) {
	logger := &recordingLogger{}
	hw := &fakeHardware{}
	s := NewSensors(hw, &fakePublisher{}, topic, fastTimings(), nil)
	m := NewManager(logger)
	key := Key{"DHT11", "4"}

	_, err := m.Start(key, Config{Duration: time.Minute}, s.DHT11(key, 4, time.Millisecond))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.State(key) == StateAbsent },
		time.Second, time.Millisecond)
	assert.Equal(t, 1, hw.readCount())
	assert.Equal(t, 1, logger.count("warn", "monitor exited with error"))
}

func TestSensors_WithSimulatedHardware(t *testing.T) {
	sim := hardware.NewSimulated(3)
	sim.SetInput(5, true)
	pub := &fakePublisher{}
	s := NewSensors(sim, pub, topic, fastTimings(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, s.PIR(Key{"PIR_SENSOR", "5"}, 5, time.Millisecond, 30*time.Millisecond)(ctx))

	// The line never changes, so only the initial state is published.
	got := pub.all()
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `"message":"Motion Detected"`)
}
