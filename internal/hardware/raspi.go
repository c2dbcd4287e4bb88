package hardware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gobot.io/x/gobot/v2"
	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/raspi"
	"gobot.io/x/gobot/v2/system"
)

// Timing constants of the bit-banged sensors.
const (
	ultrasonicTriggerPulse = 10 * time.Microsecond
	ultrasonicEchoTimeout  = 40 * time.Millisecond

	// soundCmPerSecond is half the speed of sound (there and back), in cm/s.
	soundCmPerSecond = 17150.0

	ldrDischarge = 100 * time.Millisecond
	ldrMaxCount  = 1_000_000
)

// bcmToHeader maps BCM GPIO numbers to the 40-pin header positions gobot uses.
var bcmToHeader = map[int]string{
	0: "27", 1: "28", 2: "3", 3: "5", 4: "7", 5: "29", 6: "31", 7: "26",
	8: "24", 9: "21", 10: "19", 11: "23", 12: "32", 13: "33", 14: "8", 15: "10",
	16: "36", 17: "11", 18: "12", 19: "35", 20: "38", 21: "40", 22: "15", 23: "16",
	24: "18", 25: "22", 26: "37", 27: "13",
}

// headerPin translates a BCM number into a gobot pin id.
func headerPin(bcm int) (string, error) {
	id, ok := bcmToHeader[bcm]
	if !ok {
		return "", fmt.Errorf("%w: BCM %d", ErrInvalidPin, bcm)
	}
	return id, nil
}

// RaspiConfig configures the Raspberry Pi backend.
type RaspiConfig struct {
	// LCDAddress is the I2C address of the PCF8574 LCD backpack (usually 0x27).
	LCDAddress int

	// LCDBus is the I2C bus number. Zero selects the adaptor default.
	LCDBus int

	// Logger is optional.
	Logger Logger
}

// board is the part of the gobot raspi adaptor the backend drives.
type board interface {
	DigitalPin(id string) (gobot.DigitalPinner, error)
	DigitalRead(id string) (int, error)
	DigitalWrite(id string, val byte) error
	PwmWrite(id string, val byte) error
	ServoWrite(id string, angle byte) error
	DefaultI2cBus() int
	GetI2cConnection(address int, bus int) (i2c.Connection, error)
	Finalize() error
}

// Raspi drives a Raspberry Pi's GPIO header through gobot.
//
// Pull-up bias needs the gpiod character device (the adaptor default) and
// kernel 5.5 or later. Under sysfs access gobot ignores bias, so inputs
// must be wired with external resistors.
type Raspi struct {
	adaptor board
	cfg     RaspiConfig
	logger  Logger

	biasMu   sync.Mutex
	pulledUp map[int]bool

	lcdMu sync.Mutex
	lcd   *lcdDisplay

	mu     sync.RWMutex
	closed bool
}

// NewRaspi connects to the board.
func NewRaspi(cfg RaspiConfig) (*Raspi, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	a := raspi.NewAdaptor()
	if err := a.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connecting raspi adaptor: %w", ErrHardware, err)
	}

	logger.Info("raspi adaptor connected", "name", a.Name())

	return newRaspi(a, cfg, logger), nil
}

func newRaspi(b board, cfg RaspiConfig, logger Logger) *Raspi {
	return &Raspi{
		adaptor:  b,
		cfg:      cfg,
		logger:   logger,
		pulledUp: make(map[int]bool),
	}
}

// Actuate implements Hardware.
func (r *Raspi) Actuate(ctx context.Context, a Action) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrDetached
	}

	switch a := a.(type) {
	case DigitalWrite:
		return r.digitalWrite(a.Pin, a.High)
	case RGB:
		for i, pin := range a.Pins {
			if err := r.pwmWrite(pin, float64(a.Color[i])); err != nil {
				return err
			}
		}
		return nil
	case ServoAngle:
		if _, ok := ServoDuty(a.Angle); !ok {
			return fmt.Errorf("%w: servo angle %d", ErrUnsupported, a.Angle)
		}
		id, err := headerPin(a.Pin)
		if err != nil {
			return err
		}
		if err := r.adaptor.ServoWrite(id, byte(a.Angle)); err != nil {
			return fmt.Errorf("%w: servo on BCM %d: %w", ErrHardware, a.Pin, err)
		}
		return nil
	case StepperMove:
		return r.moveStepper(ctx, a)
	case LCDText:
		return r.writeLCD(a.Message)
	default:
		return fmt.Errorf("%w: action %T", ErrUnsupported, a)
	}
}

// Read implements Hardware.
func (r *Raspi) Read(ctx context.Context, p Probe) (Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return Reading{}, ErrDetached
	}

	switch p := p.(type) {
	case DigitalInput:
		if p.PullUp {
			if err := r.pullUp(p.Pin); err != nil {
				return Reading{}, err
			}
		}
		high, err := r.digitalRead(p.Pin)
		return Reading{High: high}, err
	case DHT11:
		return readIIODHT11(defaultIIORoot)
	case Ultrasonic:
		d, err := r.measureDistance(ctx, p.Trig, p.Echo)
		return Reading{Distance: d}, err
	case LDR:
		level, err := r.chargeTime(ctx, p.Pin)
		return Reading{Level: level}, err
	case Keypad:
		key, err := r.scanKeypad(p.Rows, p.Columns)
		return Reading{Key: key}, err
	default:
		return Reading{}, fmt.Errorf("%w: probe %T", ErrUnsupported, p)
	}
}

// Close implements Hardware.
func (r *Raspi) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.adaptor.Finalize(); err != nil {
		return fmt.Errorf("%w: finalizing adaptor: %w", ErrHardware, err)
	}
	return nil
}

func (r *Raspi) digitalWrite(pin int, high bool) error {
	id, err := headerPin(pin)
	if err != nil {
		return err
	}
	var level byte
	if high {
		level = 1
	}
	if err := r.adaptor.DigitalWrite(id, level); err != nil {
		return fmt.Errorf("%w: write BCM %d: %w", ErrHardware, pin, err)
	}

	r.biasMu.Lock()
	delete(r.pulledUp, pin)
	r.biasMu.Unlock()
	return nil
}

// pullUp switches pin to an input with the internal pull-up enabled. The
// bias is applied once and kept until the pin is driven as an output.
func (r *Raspi) pullUp(pin int) error {
	r.biasMu.Lock()
	defer r.biasMu.Unlock()
	if r.pulledUp[pin] {
		return nil
	}

	id, err := headerPin(pin)
	if err != nil {
		return err
	}
	p, err := r.adaptor.DigitalPin(id)
	if err != nil {
		return fmt.Errorf("%w: pin BCM %d: %w", ErrHardware, pin, err)
	}
	if err := p.ApplyOptions(system.WithPinDirectionInput(), system.WithPinPullUp()); err != nil {
		return fmt.Errorf("%w: pull-up BCM %d: %w", ErrHardware, pin, err)
	}
	r.pulledUp[pin] = true
	return nil
}

func (r *Raspi) digitalRead(pin int) (bool, error) {
	id, err := headerPin(pin)
	if err != nil {
		return false, err
	}
	v, err := r.adaptor.DigitalRead(id)
	if err != nil {
		return false, fmt.Errorf("%w: read BCM %d: %w", ErrHardware, pin, err)
	}
	return v == 1, nil
}

// pwmWrite sets a duty percentage (0-100) on pin.
func (r *Raspi) pwmWrite(pin int, percent float64) error {
	id, err := headerPin(pin)
	if err != nil {
		return err
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if err := r.adaptor.PwmWrite(id, byte(percent*255/100)); err != nil {
		return fmt.Errorf("%w: pwm BCM %d: %w", ErrHardware, pin, err)
	}
	return nil
}

func (r *Raspi) moveStepper(ctx context.Context, m StepperMove) error {
	seq := StepperSequence(m.Clockwise)
	defer func() {
		for _, pin := range m.Pins {
			_ = r.digitalWrite(pin, false)
		}
	}()

	for range m.Steps {
		for _, phase := range seq {
			for i, pin := range m.Pins {
				if err := r.digitalWrite(pin, phase[i] == 1); err != nil {
					return err
				}
			}
			if err := sleepCtx(ctx, m.Delay); err != nil {
				return fmt.Errorf("%w: stepper interrupted: %w", ErrHardware, err)
			}
		}
	}
	return nil
}

// measureDistance fires the trigger and times the echo pulse.
func (r *Raspi) measureDistance(ctx context.Context, trig, echo int) (float64, error) {
	if err := r.digitalWrite(trig, true); err != nil {
		return 0, err
	}
	time.Sleep(ultrasonicTriggerPulse)
	if err := r.digitalWrite(trig, false); err != nil {
		return 0, err
	}

	start, err := r.waitLevel(ctx, echo, true, ultrasonicEchoTimeout)
	if err != nil {
		return 0, err
	}
	end, err := r.waitLevel(ctx, echo, false, ultrasonicEchoTimeout)
	if err != nil {
		return 0, err
	}
	return end.Sub(start).Seconds() * soundCmPerSecond, nil
}

// waitLevel polls pin until it reads level and returns the time it did.
func (r *Raspi) waitLevel(ctx context.Context, pin int, level bool, timeout time.Duration) (time.Time, error) {
	deadline := time.Now().Add(timeout)
	for {
		v, err := r.digitalRead(pin)
		if err != nil {
			return time.Time{}, err
		}
		now := time.Now()
		if v == level {
			return now, nil
		}
		if now.After(deadline) {
			return time.Time{}, fmt.Errorf("%w: echo on BCM %d timed out", ErrHardware, pin)
		}
		if err := ctx.Err(); err != nil {
			return time.Time{}, fmt.Errorf("%w: %w", ErrHardware, err)
		}
	}
}

// chargeTime discharges the LDR capacitor then counts reads until the line
// goes high. Darker means a longer charge and a larger count.
func (r *Raspi) chargeTime(ctx context.Context, pin int) (int, error) {
	if err := r.digitalWrite(pin, false); err != nil {
		return 0, err
	}
	if err := sleepCtx(ctx, ldrDischarge); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrHardware, err)
	}

	count := 0
	for {
		high, err := r.digitalRead(pin)
		if err != nil {
			return 0, err
		}
		if high {
			return count, nil
		}
		count++
		if count >= ldrMaxCount {
			return count, nil
		}
		if count%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, fmt.Errorf("%w: %w", ErrHardware, err)
			}
		}
	}
}

// scanKeypad drives one column low at a time and looks for a row pulled low.
func (r *Raspi) scanKeypad(rows, columns []int) (string, error) {
	if len(rows) != 4 {
		return "", fmt.Errorf("%w: keypad needs 4 rows, got %d", ErrUnsupported, len(rows))
	}
	defer func() {
		for _, c := range columns {
			_ = r.digitalWrite(c, true)
		}
	}()

	for ci := range columns {
		for cj, c := range columns {
			if err := r.digitalWrite(c, ci != cj); err != nil {
				return "", err
			}
		}
		for ri, row := range rows {
			if err := r.pullUp(row); err != nil {
				return "", err
			}
			high, err := r.digitalRead(row)
			if err != nil {
				return "", err
			}
			if !high {
				return KeypadLabel(ri, ci, len(columns))
			}
		}
	}
	return "", nil
}

func (r *Raspi) writeLCD(msg string) error {
	r.lcdMu.Lock()
	defer r.lcdMu.Unlock()

	if r.lcd == nil {
		bus := r.cfg.LCDBus
		if bus == 0 {
			bus = r.adaptor.DefaultI2cBus()
		}
		conn, err := r.adaptor.GetI2cConnection(r.cfg.LCDAddress, bus)
		if err != nil {
			return fmt.Errorf("%w: lcd at 0x%02X: %w", ErrHardware, r.cfg.LCDAddress, err)
		}
		d := &lcdDisplay{conn: conn}
		if err := d.init(); err != nil {
			return err
		}
		r.lcd = d
		r.logger.Info("lcd initialised", "address", "0x"+strconv.FormatInt(int64(r.cfg.LCDAddress), 16))
	}

	return r.lcd.show(LCDLines(msg))
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
