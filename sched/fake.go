package sched

import (
	"sync"
	"time"
)

var _ IScheduler = (*Fake)(nil)

// Fake is a manual scheduler for tests: scheduled calls are recorded and run
// only when fired explicitly.
type Fake struct {
	mu      sync.Mutex
	pending []*FakeTimer
}

// FakeTimer is a recorded deferred call.
type FakeTimer struct {
	Delay time.Duration

	fake    *Fake
	fn      func()
	stopped bool
	fired   bool
}

// NewFake creates an empty fake scheduler.
func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) ITimer {
	t := &FakeTimer{Delay: d, fake: f, fn: fn}
	f.mu.Lock()
	f.pending = append(f.pending, t)
	f.mu.Unlock()
	return t
}

func (t *FakeTimer) Stop() bool {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Pending returns the timers that are scheduled and not yet fired or stopped.
func (f *Fake) Pending() []*FakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*FakeTimer
	for _, t := range f.pending {
		if !t.fired && !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// Delays returns the delays of every call ever scheduled, in order.
func (f *Fake) Delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, 0, len(f.pending))
	for _, t := range f.pending {
		out = append(out, t.Delay)
	}
	return out
}

// Fire runs the oldest pending timer synchronously. Reports whether one ran.
func (f *Fake) Fire() bool {
	f.mu.Lock()
	var target *FakeTimer
	for _, t := range f.pending {
		if !t.fired && !t.stopped {
			target = t
			break
		}
	}
	if target == nil {
		f.mu.Unlock()
		return false
	}
	target.fired = true
	fn := target.fn
	f.mu.Unlock()

	fn()
	return true
}
