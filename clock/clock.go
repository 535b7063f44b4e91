// Package clock abstracts the time source used by the scheduler so that
// tests can drive time manually instead of sleeping.
package clock

//go:generate go tool mockgen -destination ../internal/testutil/clockmock/clock.go -package clockmock github.com/ghettovoice/gotick/clock Clock,Timer

import "time"

// Clock supplies the current time and deferred function calls.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// AfterFunc arranges for fn to be called once after duration d
	// and returns a handle to cancel the pending call.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a pending call armed with [Clock.AfterFunc].
type Timer interface {
	// Stop cancels the pending call.
	// It reports whether the call was still pending.
	Stop() bool
}

// System returns the Clock backed by the time package.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{tmr: time.AfterFunc(d, fn)}
}

type systemTimer struct {
	tmr *time.Timer
}

func (t systemTimer) Stop() bool { return t.tmr.Stop() }
