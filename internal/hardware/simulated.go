package hardware

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Ranges of the simulated sensors.
const (
	simHumidityMin    = 70.0
	simHumidityMax    = 90.0
	simTemperatureMin = 20.0
	simTemperatureMax = 35.0
	simDistanceMin    = 10.0
	simDistanceMax    = 200.0
	simLDRMax         = 2000

	// simKeyOdds is the chance (1 in N) that a keypad scan finds a key
	// when nothing has been queued with PressKey.
	simKeyOdds = 20
)

// Simulated is an in-memory Hardware. Readings come from a seeded PRNG so a
// given seed always produces the same sequence.
//
// Digital inputs return the level set with SetInput, or a random level for
// pins that were never set. Outputs are recorded and can be inspected.
type Simulated struct {
	mu      sync.Mutex
	rng     *rand.Rand
	inputs  map[int]bool
	outputs map[int]bool
	duty    map[int]float64
	lcd     []string
	keys    []string
	steps   map[[4]int]int
	closed  bool
	logger  Logger
}

// NewSimulated returns a simulated backend seeded with seed.
func NewSimulated(seed int64) *Simulated {
	s := uint64(seed) //nolint:gosec // seed is not security sensitive
	return &Simulated{
		rng:     rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15)),
		inputs:  make(map[int]bool),
		outputs: make(map[int]bool),
		duty:    make(map[int]float64),
		steps:   make(map[[4]int]int),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the backend.
func (s *Simulated) SetLogger(logger Logger) {
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// SetInput fixes the level a digital input pin reads back.
func (s *Simulated) SetInput(pin int, high bool) {
	s.mu.Lock()
	s.inputs[pin] = high
	s.mu.Unlock()
}

// PressKey queues a key for the next keypad scan.
func (s *Simulated) PressKey(key string) {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
}

// Output returns the last level written to pin and whether it was ever written.
func (s *Simulated) Output(pin int) (high, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	high, ok = s.outputs[pin]
	return high, ok
}

// Duty returns the last PWM duty written to pin.
func (s *Simulated) Duty(pin int) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duty[pin]
	return d, ok
}

// LCD returns the lines currently shown on the display.
func (s *Simulated) LCD() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lcd...)
}

// Steps returns the number of coil phases driven on a stepper wired to pins.
func (s *Simulated) Steps(pins [4]int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps[pins]
}

// Actuate implements Hardware.
func (s *Simulated) Actuate(ctx context.Context, a Action) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrHardware, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrDetached
	}

	switch a := a.(type) {
	case DigitalWrite:
		if a.Pin < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidPin, a.Pin)
		}
		s.outputs[a.Pin] = a.High
		s.logger.Debug("simulated digital write", "pin", a.Pin, "high", a.High)
	case RGB:
		for i, pin := range a.Pins {
			s.duty[pin] = float64(a.Color[i])
		}
		s.logger.Debug("simulated rgb", "pins", a.Pins, "color", a.Color)
	case ServoAngle:
		duty, ok := ServoDuty(a.Angle)
		if !ok {
			return fmt.Errorf("%w: servo angle %d", ErrUnsupported, a.Angle)
		}
		s.duty[a.Pin] = duty
		s.logger.Debug("simulated servo", "pin", a.Pin, "angle", a.Angle, "duty", duty)
	case StepperMove:
		seq := StepperSequence(a.Clockwise)
		for range a.Steps {
			for _, phase := range seq {
				for i, pin := range a.Pins {
					s.outputs[pin] = phase[i] == 1
				}
				s.steps[a.Pins]++
			}
		}
		// Leave the coils de-energised like the real driver does.
		for _, pin := range a.Pins {
			s.outputs[pin] = false
		}
		s.logger.Debug("simulated stepper", "pins", a.Pins, "clockwise", a.Clockwise, "steps", a.Steps)
	case LCDText:
		s.lcd = LCDLines(a.Message)
		s.logger.Debug("simulated lcd", "lines", s.lcd)
	default:
		return fmt.Errorf("%w: action %T", ErrUnsupported, a)
	}
	return nil
}

// Read implements Hardware.
func (s *Simulated) Read(ctx context.Context, p Probe) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrHardware, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Reading{}, ErrDetached
	}

	switch p := p.(type) {
	case DigitalInput:
		high, ok := s.inputs[p.Pin]
		if !ok {
			high = s.rng.IntN(2) == 1
		}
		return Reading{High: high}, nil
	case DHT11:
		return Reading{
			Humidity:    s.uniform(simHumidityMin, simHumidityMax),
			Temperature: s.uniform(simTemperatureMin, simTemperatureMax),
		}, nil
	case Ultrasonic:
		return Reading{Distance: s.uniform(simDistanceMin, simDistanceMax)}, nil
	case LDR:
		return Reading{Level: s.rng.IntN(simLDRMax)}, nil
	case Keypad:
		if len(s.keys) > 0 {
			key := s.keys[0]
			s.keys = s.keys[1:]
			return Reading{Key: key}, nil
		}
		if s.rng.IntN(simKeyOdds) == 0 {
			keys := KeypadKeys(len(p.Columns))
			if len(keys) > 0 {
				return Reading{Key: keys[s.rng.IntN(len(keys))]}, nil
			}
		}
		return Reading{}, nil
	default:
		return Reading{}, fmt.Errorf("%w: probe %T", ErrUnsupported, p)
	}
}

// Close implements Hardware.
func (s *Simulated) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// uniform returns a value in [lo, hi). Caller holds s.mu.
func (s *Simulated) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
