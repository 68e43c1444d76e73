package client

import "time"

// Handle is a cancellable scheduled callback.
type Handle interface {
	// Stop prevents the callback from firing if it has not fired yet.
	Stop()
}

// Scheduler schedules a callback to run once after a delay. Injecting it
// lets tests drive the poll loop deterministically with a fake clock.
type Scheduler interface {
	After(d time.Duration, fn func()) Handle
}

type timerScheduler struct{}

type timerHandle struct {
	t *time.Timer
}

func (h timerHandle) Stop() {
	h.t.Stop()
}

func (timerScheduler) After(d time.Duration, fn func()) Handle {
	return timerHandle{t: time.AfterFunc(d, fn)}
}

// NewTimerScheduler returns the production Scheduler backed by time.AfterFunc.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}
