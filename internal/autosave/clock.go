package autosave

import "time"

// Clock supplies time and cancellable timers to the controller. Tests drive
// the debounce and decay timers deterministically with a fake implementation.
type Clock interface {
	Now() time.Time

	// AfterFunc arms a timer that calls fn on its own goroutine after d.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancellable timer handle.
type Timer interface {
	// Stop prevents the timer from firing, reporting whether it was stopped
	// before the function ran. Stopping a fired timer is a no-op.
	Stop() bool
}

// SystemClock returns a Clock backed by real time.
func SystemClock() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{timer: time.AfterFunc(d, fn)}
}

type systemTimer struct {
	timer *time.Timer
}

func (t systemTimer) Stop() bool { return t.timer.Stop() }
