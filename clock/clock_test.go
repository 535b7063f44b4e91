package clock_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/gotick/clock"
)

func TestSystem(t *testing.T) {
	t.Parallel()

	clk := clock.System()
	if got := time.Since(clk.Now()); got < 0 || got > time.Minute {
		t.Errorf("time.Since(clk.Now()) = %v, want close to zero", got)
	}

	done := make(chan struct{})
	clk.AfterFunc(10*time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer is not fired within 1s")
	}

	fired := make(chan struct{})
	tmr := clk.AfterFunc(10*time.Millisecond, func() { close(fired) })
	if got := tmr.Stop(); !got {
		t.Errorf("tmr.Stop() = %v, want true", got)
	}
	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFake_Advance(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	fk := clock.NewFake(start)
	if got := fk.Now(); !got.Equal(start) {
		t.Errorf("fk.Now() = %v, want %v", got, start)
	}

	var fires []time.Duration
	fk.AfterFunc(30*time.Millisecond, func() { fires = append(fires, fk.Now().Sub(start)) })
	fk.AfterFunc(10*time.Millisecond, func() { fires = append(fires, fk.Now().Sub(start)) })
	if got := fk.Pending(); got != 2 {
		t.Errorf("fk.Pending() = %v, want 2", got)
	}

	// Callbacks run in due order and observe their own fire time.
	fk.Advance(50 * time.Millisecond)
	want := []time.Duration{10 * time.Millisecond, 30 * time.Millisecond}
	if diff := cmp.Diff(fires, want); diff != "" {
		t.Errorf("firing times diff (-got +want):\n%v", diff)
	}
	if got, want := fk.Now(), start.Add(50*time.Millisecond); !got.Equal(want) {
		t.Errorf("fk.Now() = %v, want %v", got, want)
	}
	if got := fk.Pending(); got != 0 {
		t.Errorf("fk.Pending() = %v, want 0", got)
	}
}

func TestFake_AdvancePartial(t *testing.T) {
	t.Parallel()

	fk := clock.NewFake(time.Unix(1000, 0))
	var fired int
	fk.AfterFunc(10*time.Millisecond, func() { fired++ })
	fk.AfterFunc(30*time.Millisecond, func() { fired++ })

	fk.Advance(20 * time.Millisecond)
	if fired != 1 {
		t.Errorf("fired = %v, want 1", fired)
	}
	fk.Advance(20 * time.Millisecond)
	if fired != 2 {
		t.Errorf("fired = %v, want 2", fired)
	}
}

func TestFake_AdvanceZero(t *testing.T) {
	t.Parallel()

	fk := clock.NewFake(time.Unix(1000, 0))
	var fired int
	fk.AfterFunc(0, func() { fired++ })

	fk.Advance(0)
	if fired != 1 {
		t.Errorf("fired = %v, want 1", fired)
	}
}

func TestFake_SameDueOrder(t *testing.T) {
	t.Parallel()

	fk := clock.NewFake(time.Unix(1000, 0))
	var order []string
	fk.AfterFunc(10*time.Millisecond, func() { order = append(order, "first") })
	fk.AfterFunc(10*time.Millisecond, func() { order = append(order, "second") })

	fk.Advance(10 * time.Millisecond)
	if diff := cmp.Diff(order, []string{"first", "second"}); diff != "" {
		t.Errorf("firing order diff (-got +want):\n%v", diff)
	}
}

func TestFake_ArmFromCallback(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	fk := clock.NewFake(start)
	var fires []time.Duration
	fk.AfterFunc(10*time.Millisecond, func() {
		fires = append(fires, fk.Now().Sub(start))
		fk.AfterFunc(10*time.Millisecond, func() { fires = append(fires, fk.Now().Sub(start)) })
	})

	// The nested arming comes due inside the same window.
	fk.Advance(30 * time.Millisecond)
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if diff := cmp.Diff(fires, want); diff != "" {
		t.Errorf("firing times diff (-got +want):\n%v", diff)
	}
}

func TestFake_Stop(t *testing.T) {
	t.Parallel()

	fk := clock.NewFake(time.Unix(1000, 0))
	var fired int
	tmr := fk.AfterFunc(10*time.Millisecond, func() { fired++ })

	if got := tmr.Stop(); !got {
		t.Errorf("tmr.Stop() = %v, want true", got)
	}
	if got := tmr.Stop(); got {
		t.Errorf("tmr.Stop() again = %v, want false", got)
	}
	fk.Advance(20 * time.Millisecond)
	if fired != 0 {
		t.Errorf("fired = %v, want 0", fired)
	}
	if got := fk.Pending(); got != 0 {
		t.Errorf("fk.Pending() = %v, want 0", got)
	}
}
