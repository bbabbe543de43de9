package util

import (
	"context"
	"errors"
	"time"
)

// ErrPollTimeout is returned by Poll when the deadline expires before
// the condition holds. Callers doing best-effort waits (node drains)
// check for it with errors.Is and proceed.
var ErrPollTimeout = errors.New("poll: condition not met before deadline")

// PollConfig bounds a polling loop.
type PollConfig struct {
	// Interval between condition checks. Default: 2s
	Interval time.Duration

	// Timeout is the total wait budget. Default: 60s
	Timeout time.Duration
}

// Poll repeatedly evaluates condition until it returns true, the
// timeout expires, or the context is cancelled.
//
// The condition is checked once immediately, so a condition that
// already holds never sleeps. A condition error aborts the loop and is
// returned as-is; ErrPollTimeout is returned on deadline expiry and
// ctx.Err() on cancellation.
func Poll(ctx context.Context, cfg PollConfig, condition func(ctx context.Context) (bool, error)) error {
	interval := EnforceDefaultTimeout(cfg.Interval, 2*time.Second)
	timeout := EnforceDefaultTimeout(cfg.Timeout, 60*time.Second)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := condition(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrPollTimeout
		case <-ticker.C:
		}
	}
}
