package monitor

import (
	"context"
	"time"

	"github.com/nerrad567/gpiohub/internal/hardware"
)

// stepFunc is one iteration of a polling loop.
type stepFunc func(ctx context.Context) error

// poll calls step at 0, interval, 2*interval, ... until ctx is done.
//
// Transient hardware errors are logged and polling continues. A permanent
// hardware error ends the loop and is returned.
func poll(ctx context.Context, interval time.Duration, logger Logger, key Key, step stepFunc) error {
	for {
		if expired(ctx) {
			return nil
		}

		if err := step(ctx); err != nil {
			if expired(ctx) {
				return nil
			}
			if hardware.IsPermanent(err) {
				return err
			}
			logger.Warn("monitor read failed", "key", key.String(), "error", err)
		}

		if !sleep(ctx, interval) {
			return nil
		}
	}
}

// expired reports whether ctx is cancelled or past its deadline. The
// deadline check covers the window before the context's own timer fires.
func expired(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return true
	}
	return false
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
