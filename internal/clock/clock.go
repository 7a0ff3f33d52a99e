// Package clock abstracts the monotonic time source used for hint rate
// limiting and timed floors, so tests can drive time by hand.
package clock

import "time"

// Clock is the time source handed to components that compare or
// schedule against time. Now must be monotonically non-decreasing.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a scheduled callback returned by AfterFunc.
type Timer struct {
	stopFunc  func() bool
	resetFunc func(time.Duration) bool
}

// Stop cancels the callback. It reports whether the timer was pending.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Reset reschedules the callback d from now. It reports whether the
// timer was pending before the reset.
func (t *Timer) Reset(d time.Duration) bool { return t.resetFunc(d) }

// Real returns a Clock backed by the time package. time.Now carries a
// monotonic reading, so Sub between two of its values never goes
// backwards on wall clock adjustments.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	timer := time.AfterFunc(d, f)
	return &Timer{
		stopFunc:  timer.Stop,
		resetFunc: timer.Reset,
	}
}
