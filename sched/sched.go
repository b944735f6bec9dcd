// Package sched abstracts deferred execution so reconnect and polling timers
// can be driven deterministically in tests.
package sched

import "time"

var _ IScheduler = (*wallScheduler)(nil)

// ITimer is a handle to a scheduled call.
type ITimer interface {
	// Stop cancels the pending call. Reports whether it was still pending.
	Stop() bool
}

// IScheduler schedules single-shot deferred calls.
type IScheduler interface {
	AfterFunc(d time.Duration, fn func()) ITimer
}

type wallScheduler struct{}

type wallTimer struct {
	t *time.Timer
}

func (t *wallTimer) Stop() bool { return t.t.Stop() }

func (s *wallScheduler) AfterFunc(d time.Duration, fn func()) ITimer {
	return &wallTimer{t: time.AfterFunc(d, fn)}
}

// Wall returns the wall-clock scheduler.
func Wall() IScheduler {
	return &wallScheduler{}
}
