package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// backoffState belongs to a single Poll call.
type backoffState struct {
	attempts  int
	wait      time.Duration
	startedAt time.Time
}

func newBackoffState(cfg PollConfig, startedAt time.Time) *backoffState {
	return &backoffState{
		wait:      clampWait(cfg.InitialWait, 0),
		startedAt: startedAt,
	}
}

// grow advances the wait after a rejected attempt. MaxWait caps the default
// growth; a caller's growth is capped only when the call also set MaxWait.
func (b *backoffState) grow(cfg PollConfig) {
	growth := cfg.WaitGrowth
	if growth == nil {
		growth = DoublingGrowth
	}
	limit := cfg.MaxWait
	if cfg.customGrowth && !cfg.capGrowth {
		limit = 0
	}
	b.wait = clampWait(growth(b.wait, b.attempts), limit)
}

func clampWait(wait time.Duration, max time.Duration) time.Duration {
	if wait < 0 {
		return 0
	}
	if max > 0 && wait > max {
		return max
	}
	return wait
}

// WaitSchedule lists the waits a poll with cfg as its call overrides would
// sleep before each retry, up to limit entries.
func WaitSchedule(cfg PollConfig, limit int) []time.Duration {
	if limit <= 0 {
		return nil
	}
	cfg, err := MergePollConfig(DefaultPollConfig(), cfg)
	if err != nil {
		return nil
	}
	state := newBackoffState(cfg, time.Time{})
	out := make([]time.Duration, 0, limit)
	for len(out) < limit {
		state.attempts++
		out = append(out, state.wait)
		state.grow(cfg)
	}
	return out
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func newCallID() string {
	return uuid.NewString()
}
