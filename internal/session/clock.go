package session

import "time"

// Clock abstracts time so attempts and the long-press recognizer can be
// driven deterministically in tests. Nothing in this package reads the
// wall clock directly.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) StopTimer
}

// StopTimer cancels a pending AfterFunc callback.
type StopTimer interface {
	Stop() bool
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) StopTimer {
	return time.AfterFunc(d, f)
}
