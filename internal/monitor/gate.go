package monitor

// Debounce turns a polled boolean line into transition events. The first
// observation always emits; after that only changes do.
//
// A Debounce belongs to a single loop and is not safe for concurrent use.
type Debounce struct {
	last bool
	seen bool
}

// ShouldEmit records state and reports whether it should be published.
func (d *Debounce) ShouldEmit(state bool) bool {
	if d.seen && state == d.last {
		return false
	}
	d.seen = true
	d.last = state
	return true
}

// Threshold is a level-triggered switch: every reading is judged on its
// own, with no hysteresis, so the output follows the reading around the
// threshold.
type Threshold struct {
	Limit int
}

// On reports whether the output should be on for level.
func (t Threshold) On(level int) bool {
	return level < t.Limit
}
