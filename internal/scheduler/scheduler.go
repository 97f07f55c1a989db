package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked for every refresh cycle. manual reports whether the
// cycle was user-triggered rather than timer-driven.
type TickFunc func(ctx context.Context, manual bool) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
}

// Scheduler drives the refresh loop. A single consumer goroutine executes
// ticks one at a time, so a tick can never observe another tick in flight;
// manual triggers park in a one-slot buffer and coalesce until the loop is
// free to serve them.
type Scheduler struct {
	opts    Options
	logger  zerolog.Logger
	trigger chan struct{}
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{
		opts:    opts,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		trigger: make(chan struct{}, 1),
	}
}

// Trigger requests an out-of-band refresh cycle. It never blocks; when a
// manual refresh is already pending the request coalesces into it and
// Trigger reports false.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run blocks, invoking the tick function on every interval and on every
// manual trigger until ctx is cancelled. Tick errors are logged and the
// loop continues; the next cycle always happens.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	next := s.nextTick(time.Now().UTC())
	for {
		delay := time.Until(next)
		if delay < 0 {
			// A slow cycle overran one or more intervals; the missed
			// ticks collapse into the upcoming one.
			next = s.nextTick(time.Now().UTC())
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_tick", next).Msg("waiting for next tick")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.trigger:
			timer.Stop()
			s.logger.Info().Msg("executing manual refresh")
			if err := tick(ctx, true); err != nil {
				s.logger.Error().Err(err).Msg("manual refresh failed")
			}
			continue
		case <-timer.C:
			timer.Stop()
		}

		s.logger.Debug().Time("tick", next).Msg("executing scheduled tick")
		if err := tick(ctx, false); err != nil {
			s.logger.Error().Err(err).Time("tick", next).Msg("tick execution failed")
		}

		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	aligned := now.Truncate(s.opts.Interval)
	if !aligned.After(now) {
		aligned = aligned.Add(s.opts.Interval)
	}
	return aligned
}
