package monitor

import (
	"context"
	"time"

	"github.com/nerrad567/gpiohub/internal/command"
	"github.com/nerrad567/gpiohub/internal/hardware"
)

// PIR event messages.
const (
	MotionDetected   = "Motion Detected"
	NoMotionDetected = "No Motion Detected"
)

// lightOffTimeout bounds the final light-off write when an LDR loop ends.
const lightOffTimeout = 2 * time.Second

// Publisher sends an event payload to a topic. It must be safe for
// concurrent use; every monitor publishes through the same one.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Timings are the fixed pacing of loops whose period does not come from
// the command.
type Timings struct {
	ButtonPoll   time.Duration
	ButtonSettle time.Duration
	KeypadPoll   time.Duration
	KeypadSettle time.Duration
	LDRPeriod    time.Duration
}

// DefaultTimings returns the stock pacing.
func DefaultTimings() Timings {
	return Timings{
		ButtonPoll:   100 * time.Millisecond,
		ButtonSettle: 200 * time.Millisecond,
		KeypadPoll:   100 * time.Millisecond,
		KeypadSettle: 200 * time.Millisecond,
		LDRPeriod:    time.Second,
	}
}

// Sensors builds loop bodies that read through hw and publish to topic.
type Sensors struct {
	hw      hardware.Hardware
	pub     Publisher
	topic   string
	timings Timings
	logger  Logger
}

// NewSensors creates a loop factory.
func NewSensors(hw hardware.Hardware, pub Publisher, topic string, timings Timings, logger Logger) *Sensors {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Sensors{
		hw:      hw,
		pub:     pub,
		topic:   topic,
		timings: timings,
		logger:  logger,
	}
}

// publish sends payload and logs failures. Events are not retried.
func (s *Sensors) publish(key Key, payload []byte, err error) {
	if err != nil {
		s.logger.Error("failed to encode event", "key", key.String(), "error", err)
		return
	}
	if err := s.pub.Publish(s.topic, payload); err != nil {
		s.logger.Warn("failed to publish event", "key", key.String(), "error", err)
		return
	}
	s.logger.Debug("event published", "key", key.String(), "payload", string(payload))
}

// DHT11 publishes a flat temperature/humidity reading every interval.
func (s *Sensors) DHT11(key Key, pin int, interval time.Duration) LoopFunc {
	return func(ctx context.Context) error {
		return poll(ctx, interval, s.logger, key, func(ctx context.Context) error {
			r, err := s.hw.Read(ctx, hardware.DHT11{Pin: pin})
			if err != nil {
				return err
			}
			payload, err := command.ClimateReading{
				Temperature: r.Temperature,
				Humidity:    r.Humidity,
			}.Encode()
			s.publish(key, payload, err)
			return nil
		})
	}
}

// Ultrasonic publishes the measured distance every interval.
func (s *Sensors) Ultrasonic(key Key, trig, echo int, interval time.Duration) LoopFunc {
	return func(ctx context.Context) error {
		return poll(ctx, interval, s.logger, key, func(ctx context.Context) error {
			r, err := s.hw.Read(ctx, hardware.Ultrasonic{Trig: trig, Echo: echo})
			if err != nil {
				return err
			}
			payload, err := command.Event(command.ComponentUltrasonic, map[string]any{
				"distance": command.Round2(r.Distance),
			})
			s.publish(key, payload, err)
			return nil
		})
	}
}

// PIR publishes motion transitions. The payload echoes the interval and
// duration the monitor was started with, in seconds.
func (s *Sensors) PIR(key Key, pin int, interval, duration time.Duration) LoopFunc {
	return func(ctx context.Context) error {
		var gate Debounce
		return poll(ctx, interval, s.logger, key, func(ctx context.Context) error {
			r, err := s.hw.Read(ctx, hardware.DigitalInput{Pin: pin})
			if err != nil {
				return err
			}
			if !gate.ShouldEmit(r.High) {
				return nil
			}
			msg := NoMotionDetected
			if r.High {
				msg = MotionDetected
			}
			payload, err := command.Event(command.ComponentPIR, map[string]any{
				"pin":      pin,
				"message":  msg,
				"interval": int(interval / time.Second),
				"duration": int(duration / time.Second),
			})
			s.publish(key, payload, err)
			return nil
		})
	}
}

// LDR switches lightPin on while the LDR reads below threshold. The light
// is switched off when the loop ends for any reason.
func (s *Sensors) LDR(key Key, ldrPin, lightPin, threshold int) LoopFunc {
	return func(ctx context.Context) error {
		defer s.lightOff(key, lightPin)

		gate := Threshold{Limit: threshold}
		return poll(ctx, s.timings.LDRPeriod, s.logger, key, func(ctx context.Context) error {
			r, err := s.hw.Read(ctx, hardware.LDR{Pin: ldrPin})
			if err != nil {
				return err
			}
			on := gate.On(r.Level)
			if err := s.hw.Actuate(ctx, hardware.DigitalWrite{Pin: lightPin, High: on}); err != nil {
				return err
			}
			s.logger.Debug("ldr light updated", "key", key.String(), "level", r.Level, "threshold", threshold, "on", on)
			return nil
		})
	}
}

func (s *Sensors) lightOff(key Key, pin int) {
	ctx, cancel := context.WithTimeout(context.Background(), lightOffTimeout)
	defer cancel()
	if err := s.hw.Actuate(ctx, hardware.DigitalWrite{Pin: pin, High: false}); err != nil {
		s.logger.Warn("failed to switch light off", "key", key.String(), "pin", pin, "error", err)
	}
}

// Button publishes press and release transitions. The line is pulled up,
// so pressed reads LOW. After each published transition the loop waits
// the settle time before sampling again.
func (s *Sensors) Button(key Key, pin int) LoopFunc {
	return func(ctx context.Context) error {
		var gate Debounce
		return poll(ctx, s.timings.ButtonPoll, s.logger, key, func(ctx context.Context) error {
			r, err := s.hw.Read(ctx, hardware.DigitalInput{Pin: pin, PullUp: true})
			if err != nil {
				return err
			}
			pressed := !r.High
			if !gate.ShouldEmit(pressed) {
				return nil
			}
			payload, err := command.Event(command.ComponentButton, map[string]any{
				"pin":     pin,
				"pressed": pressed,
			})
			s.publish(key, payload, err)
			sleep(ctx, s.timings.ButtonSettle)
			return nil
		})
	}
}

// Keypad publishes every key press on the statically wired matrix.
func (s *Sensors) Keypad(key Key, rows, columns []int) LoopFunc {
	return func(ctx context.Context) error {
		probe := hardware.Keypad{Rows: rows, Columns: columns}
		return poll(ctx, s.timings.KeypadPoll, s.logger, key, func(ctx context.Context) error {
			r, err := s.hw.Read(ctx, probe)
			if err != nil {
				return err
			}
			if r.Key == "" {
				return nil
			}
			payload, err := command.Event(command.ComponentKeypad, map[string]any{
				"key": r.Key,
			})
			s.publish(key, payload, err)
			sleep(ctx, s.timings.KeypadSettle)
			return nil
		})
	}
}
