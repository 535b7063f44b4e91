package clock

import (
	"slices"
	"sync"
	"time"
)

// Fake is a manually driven [Clock] for deterministic tests.
//
// Time stands still until [Fake.Advance] is called. Advance moves the clock
// forward and runs every armed function whose due time falls inside the
// advanced window, in due order, on the calling goroutine. Before each
// function runs the clock is set to that function's due time, so Now observed
// inside a callback reports the fire time. Functions armed by a callback are
// themselves run in the same Advance call when they come due within the
// remaining window.
//
// Calls already due fire on the next Advance, including Advance(0).
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*fakeTimer
}

// NewFake creates a Fake clock reporting now as the current time.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc arms fn to be called once the clock is advanced past d from now.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	tmr := &fakeTimer{
		clk: f,
		seq: f.seq,
		due: f.now.Add(d),
		fn:  fn,
	}
	f.timers = append(f.timers, tmr)
	return tmr
}

// Advance moves the clock forward by d, firing due functions along the way.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		tmr := f.popDueLocked(target)
		if tmr == nil {
			break
		}
		if tmr.due.After(f.now) {
			f.now = tmr.due
		}
		f.mu.Unlock()
		tmr.fn()
		f.mu.Lock()
	}
	if target.After(f.now) {
		f.now = target
	}
	f.mu.Unlock()
}

// Pending returns the number of armed calls.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// popDueLocked removes and returns the earliest timer due at or before limit,
// ties broken by arming order.
func (f *Fake) popDueLocked(limit time.Time) *fakeTimer {
	best := -1
	for i, tmr := range f.timers {
		if tmr.due.After(limit) {
			continue
		}
		if best < 0 || tmr.due.Before(f.timers[best].due) ||
			(tmr.due.Equal(f.timers[best].due) && tmr.seq < f.timers[best].seq) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	tmr := f.timers[best]
	f.timers = slices.Delete(f.timers, best, best+1)
	return tmr
}

type fakeTimer struct {
	clk *Fake
	seq uint64
	due time.Time
	fn  func()
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	i := slices.Index(t.clk.timers, t)
	if i < 0 {
		return false
	}
	t.clk.timers = slices.Delete(t.clk.timers, i, i+1)
	return true
}
