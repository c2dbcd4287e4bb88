package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/gpiohub/internal/hardware"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level, msg, args})
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

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

type scripted struct {
	reading hardware.Reading
	err     error
}

// fakeHardware replays a script of readings. Once the script is exhausted
// it returns repeat if set, otherwise ErrDetached so the loop ends.
type fakeHardware struct {
	mu      sync.Mutex
	script  []scripted
	repeat  *hardware.Reading
	reads   int
	probes  []hardware.Probe
	actions []hardware.Action
}

func (f *fakeHardware) Read(_ context.Context, p hardware.Probe) (hardware.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	f.probes = append(f.probes, p)
	if len(f.script) == 0 {
		if f.repeat != nil {
			return *f.repeat, nil
		}
		return hardware.Reading{}, fmt.Errorf("%w: script exhausted", hardware.ErrDetached)
	}
	s := f.script[0]
	f.script = f.script[1:]
	return s.reading, s.err
}

func (f *fakeHardware) Actuate(_ context.Context, a hardware.Action) error {
	f.mu.Lock()
	f.actions = append(f.actions, a)
	f.mu.Unlock()
	return nil
}

func (f *fakeHardware) Close() error { return nil }

func (f *fakeHardware) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeHardware) writes() []hardware.DigitalWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []hardware.DigitalWrite
	for _, a := range f.actions {
		if w, ok := a.(hardware.DigitalWrite); ok {
			out = append(out, w)
		}
	}
	return out
}

// fakePublisher records every payload.
type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []string
	err      error
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, string(payload))
	return nil
}

func (p *fakePublisher) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.payloads...)
}

func readings(highs ...bool) []scripted {
	out := make([]scripted, len(highs))
	for i, h := range highs {
		out[i] = scripted{reading: hardware.Reading{High: h}}
	}
	return out
}
