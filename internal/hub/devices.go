package hub

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/nerrad567/gpiohub/internal/command"
	"github.com/nerrad567/gpiohub/internal/hardware"
	"github.com/nerrad567/gpiohub/internal/monitor"
)

// Command defaults that are fixed per component.
const (
	defaultDHT11Interval = 2 // seconds
	defaultLDRThreshold  = 1000
	defaultStepperSteps  = 400
	defaultStepperDelay  = 10 // milliseconds

	// keypadDevice is the monitor key of the statically wired keypad.
	keypadDevice = "keypad"

	maxDuty = 100
)

// Stepper directions.
const (
	DirectionClockwise        = "clockwise"
	DirectionCounterClockwise = "counterclockwise"
)

// Digital output states.
const (
	StateOn  = "ON"
	StateOff = "OFF"
)

// DeviceOptions configures Devices.
type DeviceOptions struct {
	// DefaultInterval and DefaultDuration apply when a monitor command omits them.
	DefaultInterval time.Duration
	DefaultDuration time.Duration

	// KeypadRows and KeypadColumns are the BCM pins of the matrix keypad.
	KeypadRows    []int
	KeypadColumns []int

	// Timings must match the ones the Sensors were built with.
	Timings monitor.Timings

	Logger Logger
}

// Devices holds the handlers for every component.
type Devices struct {
	hw       hardware.Hardware
	monitors *monitor.Manager
	sensors  *monitor.Sensors
	opts     DeviceOptions
	logger   Logger
}

// NewDevices builds the handler set.
func NewDevices(hw hardware.Hardware, monitors *monitor.Manager, sensors *monitor.Sensors, opts DeviceOptions) *Devices {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = time.Second
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = 10 * time.Second
	}
	return &Devices{
		hw:       hw,
		monitors: monitors,
		sensors:  sensors,
		opts:     opts,
		logger:   logger,
	}
}

// Register adds every component handler to r.
func (d *Devices) Register(r *Registry) error {
	handlers := map[string]HandlerFunc{
		command.ComponentLCD:        d.handleLCD,
		command.ComponentLED:        d.handleDigital,
		command.ComponentRelay:      d.handleDigital,
		command.ComponentBuzzer:     d.handleDigital,
		command.ComponentStepper:    d.handleStepper,
		command.ComponentLight:      d.handlePWM,
		command.ComponentServo:      d.handlePWM,
		command.ComponentDHT11:      d.handleDHT11,
		command.ComponentUltrasonic: d.handleUltrasonic,
		command.ComponentPIR:        d.handlePIR,
		command.ComponentLDR:        d.handleLDR,
		command.ComponentButton:     d.handleButton,
		command.ComponentKeypad:     d.handleKeypad,
		command.ComponentMonitor:    d.handleMonitor,
	}
	for component, h := range handlers {
		if err := r.Register(component, h); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRegistry returns a registry with every handler of d.
func DefaultRegistry(d *Devices) (*Registry, error) {
	r := NewRegistry()
	if err := d.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// =============================================================================
// One-shot outputs
// =============================================================================

func (d *Devices) handleLCD(ctx context.Context, cmd command.Command) error {
	msg, err := cmd.String("message")
	if err != nil {
		return err
	}
	if err := d.hw.Actuate(ctx, hardware.LCDText{Message: msg}); err != nil {
		return fmt.Errorf("lcd: %w", err)
	}
	d.logger.Info("lcd message displayed", "message", msg)
	return nil
}

// handleDigital serves led, relay and buzzer. "ON" drives the pin high,
// any other state drives it low.
func (d *Devices) handleDigital(ctx context.Context, cmd command.Command) error {
	pin, err := cmd.Int("pin")
	if err != nil {
		return err
	}
	state, err := cmd.String("state")
	if err != nil {
		return err
	}

	high := state == StateOn
	if err := d.hw.Actuate(ctx, hardware.DigitalWrite{Pin: pin, High: high}); err != nil {
		return fmt.Errorf("%s on pin %d: %w", cmd.Component, pin, err)
	}
	d.logger.Info("digital output set", "component", cmd.Component, "pin", pin, "state", state)
	return nil
}

func (d *Devices) handleStepper(ctx context.Context, cmd command.Command) error {
	pins, err := cmd.IntSlice("pins", 4)
	if err != nil {
		return err
	}
	direction, err := cmd.String("direction")
	if err != nil {
		return err
	}
	if direction != DirectionClockwise && direction != DirectionCounterClockwise {
		return &command.SchemaError{Component: cmd.Component, Field: "direction",
			Reason: "must be " + DirectionClockwise + " or " + DirectionCounterClockwise}
	}
	steps, err := cmd.IntOr("steps", defaultStepperSteps)
	if err != nil {
		return err
	}
	if steps < 0 {
		return &command.SchemaError{Component: cmd.Component, Field: "steps", Reason: "must not be negative"}
	}
	delay, err := cmd.IntOr("delay", defaultStepperDelay)
	if err != nil {
		return err
	}
	if delay < 0 {
		return &command.SchemaError{Component: cmd.Component, Field: "delay", Reason: "must not be negative"}
	}

	move := hardware.StepperMove{
		Pins:      [4]int{pins[0], pins[1], pins[2], pins[3]},
		Clockwise: direction == DirectionClockwise,
		Steps:     steps,
		Delay:     time.Duration(delay) * time.Millisecond,
	}
	if err := d.hw.Actuate(ctx, move); err != nil {
		return fmt.Errorf("stepper: %w", err)
	}
	d.logger.Info("stepper moved", "pins", pins, "direction", direction, "steps", steps, "delay_ms", delay)
	return nil
}

// handlePWM serves both light (RGB duty cycles) and servo (angle).
func (d *Devices) handlePWM(ctx context.Context, cmd command.Command) error {
	if cmd.Component == command.ComponentServo {
		return d.setServo(ctx, cmd)
	}
	return d.setLight(ctx, cmd)
}

func (d *Devices) setLight(ctx context.Context, cmd command.Command) error {
	pins, err := cmd.IntSlice("pins", 3)
	if err != nil {
		return err
	}
	color, err := cmd.IntSlice("color", 3)
	if err != nil {
		return err
	}
	for _, c := range color {
		if c < 0 || c > maxDuty {
			return &command.SchemaError{Component: cmd.Component, Field: "color", Reason: "values must be 0-100"}
		}
	}

	rgb := hardware.RGB{
		Pins:  [3]int{pins[0], pins[1], pins[2]},
		Color: [3]int{color[0], color[1], color[2]},
	}
	if err := d.hw.Actuate(ctx, rgb); err != nil {
		return fmt.Errorf("light: %w", err)
	}
	d.logger.Info("rgb color set", "pins", pins, "color", color)
	return nil
}

func (d *Devices) setServo(ctx context.Context, cmd command.Command) error {
	pin, err := cmd.Int("pin")
	if err != nil {
		return err
	}
	angle, err := cmd.Int("angle")
	if err != nil {
		return err
	}
	if _, ok := hardware.ServoDuty(angle); !ok {
		return &command.SchemaError{Component: cmd.Component, Field: "angle", Reason: "must be 0, 90 or 180"}
	}

	if err := d.hw.Actuate(ctx, hardware.ServoAngle{Pin: pin, Angle: angle}); err != nil {
		return fmt.Errorf("servo on pin %d: %w", pin, err)
	}
	d.logger.Info("servo angle set", "pin", pin, "angle", angle)
	return nil
}

// =============================================================================
// Monitors
// =============================================================================

// maxSeconds is the largest whole-second count a time.Duration can hold.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// seconds reads an optional positive number of seconds.
func seconds(cmd command.Command, field string, def time.Duration) (time.Duration, error) {
	n, err := cmd.IntOr(field, int(def/time.Second))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, &command.SchemaError{Component: cmd.Component, Field: field, Reason: "must be at least 1 second"}
	}
	if int64(n) > maxSeconds {
		return 0, &command.SchemaError{Component: cmd.Component, Field: field, Reason: "too large"}
	}
	return time.Duration(n) * time.Second, nil
}

// timing reads the interval and duration of a periodic monitor.
func (d *Devices) timing(cmd command.Command, defInterval time.Duration) (monitor.Config, error) {
	interval, err := seconds(cmd, "interval", defInterval)
	if err != nil {
		return monitor.Config{}, err
	}
	duration, err := seconds(cmd, "duration", d.opts.DefaultDuration)
	if err != nil {
		return monitor.Config{}, err
	}
	return monitor.Config{Interval: interval, Duration: duration}, nil
}

// start hands body to the manager. It blocks only while a previous task for
// the same key winds down.
func (d *Devices) start(key monitor.Key, cfg monitor.Config, body monitor.LoopFunc) error {
	id, err := d.monitors.Start(key, cfg, body)
	if err != nil {
		return fmt.Errorf("starting %s monitor: %w", key, err)
	}
	d.logger.Info("monitor requested",
		"key", key.String(),
		"task_id", id,
		"interval", cfg.Interval,
		"duration", cfg.Duration,
	)
	return nil
}

func (d *Devices) handleDHT11(_ context.Context, cmd command.Command) error {
	pin, err := cmd.Int("pin")
	if err != nil {
		return err
	}
	cfg, err := d.timing(cmd, defaultDHT11Interval*time.Second)
	if err != nil {
		return err
	}
	key := monitor.Key{Component: cmd.Component, Device: strconv.Itoa(pin)}
	return d.start(key, cfg, d.sensors.DHT11(key, pin, cfg.Interval))
}

func (d *Devices) handleUltrasonic(_ context.Context, cmd command.Command) error {
	trig, err := cmd.Int("trig_pin")
	if err != nil {
		return err
	}
	echo, err := cmd.Int("echo_pin")
	if err != nil {
		return err
	}
	cfg, err := d.timing(cmd, d.opts.DefaultInterval)
	if err != nil {
		return err
	}
	key := monitor.Key{Component: cmd.Component, Device: strconv.Itoa(trig) + ":" + strconv.Itoa(echo)}
	return d.start(key, cfg, d.sensors.Ultrasonic(key, trig, echo, cfg.Interval))
}

func (d *Devices) handlePIR(_ context.Context, cmd command.Command) error {
	pin, err := cmd.Int("pin")
	if err != nil {
		return err
	}
	cfg, err := d.timing(cmd, d.opts.DefaultInterval)
	if err != nil {
		return err
	}
	key := monitor.Key{Component: cmd.Component, Device: strconv.Itoa(pin)}
	return d.start(key, cfg, d.sensors.PIR(key, pin, cfg.Interval, cfg.Duration))
}

func (d *Devices) handleLDR(_ context.Context, cmd command.Command) error {
	ldrPin, err := cmd.Int("ldr_pin")
	if err != nil {
		return err
	}
	lightPin, err := cmd.Int("light_pin")
	if err != nil {
		return err
	}
	threshold, err := cmd.IntOr("threshold", defaultLDRThreshold)
	if err != nil {
		return err
	}
	duration, err := seconds(cmd, "duration", d.opts.DefaultDuration)
	if err != nil {
		return err
	}
	cfg := monitor.Config{Interval: d.opts.Timings.LDRPeriod, Duration: duration}
	key := monitor.Key{Component: cmd.Component, Device: strconv.Itoa(ldrPin)}
	return d.start(key, cfg, d.sensors.LDR(key, ldrPin, lightPin, threshold))
}

func (d *Devices) handleButton(_ context.Context, cmd command.Command) error {
	pin, err := cmd.Int("pin")
	if err != nil {
		return err
	}
	duration, err := seconds(cmd, "duration", d.opts.DefaultDuration)
	if err != nil {
		return err
	}
	cfg := monitor.Config{Interval: d.opts.Timings.ButtonPoll, Duration: duration}
	key := monitor.Key{Component: cmd.Component, Device: strconv.Itoa(pin)}
	return d.start(key, cfg, d.sensors.Button(key, pin))
}

// handleKeypad ignores any pin in the command; the keypad wiring is static.
func (d *Devices) handleKeypad(_ context.Context, cmd command.Command) error {
	duration, err := seconds(cmd, "duration", d.opts.DefaultDuration)
	if err != nil {
		return err
	}
	cfg := monitor.Config{Interval: d.opts.Timings.KeypadPoll, Duration: duration}
	key := monitor.Key{Component: cmd.Component, Device: keypadDevice}
	return d.start(key, cfg, d.sensors.Keypad(key, d.opts.KeypadRows, d.opts.KeypadColumns))
}

// handleMonitor stops monitors on request:
//
//	{"component":"monitor","data":{"action":"stop","target":"PIR_SENSOR","key":"5"}}
//	{"component":"monitor","data":{"action":"stop","target":"PIR_SENSOR"}}
//	{"component":"monitor","data":{"action":"stop_all"}}
func (d *Devices) handleMonitor(ctx context.Context, cmd command.Command) error {
	action, err := cmd.String("action")
	if err != nil {
		return err
	}

	switch action {
	case "stop":
		target, err := cmd.String("target")
		if err != nil {
			return err
		}
		device, err := cmd.StringOr("key", "")
		if err != nil {
			return err
		}
		if device != "" {
			key := monitor.Key{Component: target, Device: device}
			stopped := d.monitors.Stop(key)
			d.logger.Info("monitor stop requested", "key", key.String(), "stopped", stopped)
			return nil
		}
		n, err := d.monitors.StopComponent(ctx, target)
		if err != nil {
			return fmt.Errorf("stopping %s monitors: %w", target, err)
		}
		d.logger.Info("monitor stop requested", "component", target, "stopped", n)
		return nil
	case "stop_all":
		if err := d.monitors.StopAll(ctx); err != nil {
			return fmt.Errorf("stopping all monitors: %w", err)
		}
		d.logger.Info("all monitors stopped")
		return nil
	default:
		return &command.SchemaError{Component: cmd.Component, Field: "action", Reason: "must be stop or stop_all"}
	}
}
