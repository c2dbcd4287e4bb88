package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gpiohub/internal/infrastructure/config"
)

// Hardware is the capability set the hub needs from the host.
//
// Implementations must be safe for concurrent use: the router actuates
// outputs while monitor goroutines read sensors. Exclusive use of a given
// pin is the caller's business (see monitor.Manager).
type Hardware interface {
	// Actuate drives an output. It returns once the output is set
	// (for a stepper, once the move is complete or ctx is cancelled).
	Actuate(ctx context.Context, a Action) error

	// Read samples a sensor.
	Read(ctx context.Context, p Probe) (Reading, error)

	// Close releases every pin. Subsequent calls fail with ErrDetached.
	Close() error
}

// Action is an output request. The concrete types below are the only actions.
type Action interface {
	action()
}

// DigitalWrite sets a GPIO output high or low.
type DigitalWrite struct {
	Pin  int
	High bool
}

// RGB sets a three-channel PWM light. Color values are duty percentages (0-100).
type RGB struct {
	Pins  [3]int
	Color [3]int
}

// ServoAngle moves a hobby servo to one of the supported angles (0, 90, 180).
type ServoAngle struct {
	Pin   int
	Angle int
}

// StepperMove walks a four-coil stepper through Steps full sequences.
type StepperMove struct {
	Pins      [4]int
	Clockwise bool
	Steps     int
	Delay     time.Duration
}

// LCDText clears the character display and shows Message across its lines.
type LCDText struct {
	Message string
}

func (DigitalWrite) action() {}
func (RGB) action()          {}
func (ServoAngle) action()   {}
func (StepperMove) action()  {}
func (LCDText) action()      {}

// Probe is a sensor read request. The concrete types below are the only probes.
type Probe interface {
	probe()
}

// DigitalInput samples a GPIO line.
type DigitalInput struct {
	Pin    int
	PullUp bool
}

// DHT11 reads temperature and humidity from a DHT11 on Pin.
type DHT11 struct {
	Pin int
}

// Ultrasonic measures distance with an HC-SR04 style ranger.
type Ultrasonic struct {
	Trig int
	Echo int
}

// LDR measures light level with the RC charge-time method.
// Lower values mean more light.
type LDR struct {
	Pin int
}

// Keypad scans a matrix keypad once.
type Keypad struct {
	Rows    []int
	Columns []int
}

func (DigitalInput) probe() {}
func (DHT11) probe()        {}
func (Ultrasonic) probe()   {}
func (LDR) probe()          {}
func (Keypad) probe()       {}

// Reading is the result of a Read. Only the fields relevant to the probe are set.
type Reading struct {
	High        bool    // DigitalInput
	Temperature float64 // DHT11, degrees Celsius
	Humidity    float64 // DHT11, percent
	Distance    float64 // Ultrasonic, centimetres
	Level       int     // LDR charge count
	Key         string  // Keypad; empty when nothing is pressed
}

// Logger defines the logging interface for hardware backends.
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

// Open builds the backend selected by cfg.Backend.
func Open(cfg config.HardwareConfig, logger Logger) (Hardware, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	switch cfg.Backend {
	case config.BackendSimulated:
		sim := NewSimulated(cfg.Seed)
		sim.SetLogger(logger)
		return sim, nil
	case config.BackendRaspi:
		return NewRaspi(RaspiConfig{
			LCDAddress: cfg.LCDAddress,
			LCDBus:     cfg.LCDBus,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnsupported, cfg.Backend)
	}
}
