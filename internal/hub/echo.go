package hub

import (
	"sync"
	"time"
)

// defaultEchoTTL is how long a published payload is remembered.
const defaultEchoTTL = 30 * time.Second

// Publisher is the outbound half of the transport.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type echoEntry struct {
	pending int
	expires time.Time
}

// EchoFilter remembers payloads the hub published so the Router can drop
// them when the broker delivers them back on the shared topic.
type EchoFilter struct {
	next Publisher
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*echoEntry
}

// NewEchoFilter wraps next. A ttl of zero selects the default.
func NewEchoFilter(next Publisher, ttl time.Duration) *EchoFilter {
	if ttl <= 0 {
		ttl = defaultEchoTTL
	}
	return &EchoFilter{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*echoEntry),
	}
}

// Publish records payload, then forwards it. A failed publish is forgotten.
func (f *EchoFilter) Publish(topic string, payload []byte) error {
	key := string(payload)

	f.mu.Lock()
	now := f.now()
	f.pruneLocked(now)
	e, ok := f.entries[key]
	if !ok {
		e = &echoEntry{}
		f.entries[key] = e
	}
	e.pending++
	e.expires = now.Add(f.ttl)
	f.mu.Unlock()

	if err := f.next.Publish(topic, payload); err != nil {
		f.forget(key)
		return err
	}
	return nil
}

// Consume reports whether payload is an echo of something we published,
// and if so uses up one pending echo.
func (f *EchoFilter) Consume(payload []byte) bool {
	key := string(payload)

	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[key]
	if !ok {
		return false
	}
	if !f.now().Before(e.expires) {
		delete(f.entries, key)
		return false
	}
	e.pending--
	if e.pending <= 0 {
		delete(f.entries, key)
	}
	return true
}

// Pending returns the number of payloads awaiting their echo.
func (f *EchoFilter) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		n += e.pending
	}
	return n
}

func (f *EchoFilter) forget(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[key]; ok {
		e.pending--
		if e.pending <= 0 {
			delete(f.entries, key)
		}
	}
}

func (f *EchoFilter) pruneLocked(now time.Time) {
	for k, e := range f.entries {
		if !now.Before(e.expires) {
			delete(f.entries, k)
		}
	}
}
