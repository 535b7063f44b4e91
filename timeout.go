package gotick

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/qmuntal/stateless"
)

// TimeoutState is a lifecycle state of a [Timeout].
type TimeoutState string

// Timeout states.
const (
	// TimeoutStatePending is the state of an armed timeout that fires on the
	// first sweep past its deadline.
	TimeoutStatePending TimeoutState = "pending"
	// TimeoutStatePaused is the state of a timeout excluded from sweeps.
	TimeoutStatePaused TimeoutState = "paused"
	// TimeoutStateComplete is the state of a non-recurring timeout that has
	// fired and left its bucket.
	TimeoutStateComplete TimeoutState = "complete"
)

// PauseMode selects how pause and resume account for the time spent paused.
type PauseMode string

// Pause modes.
const (
	// PauseModeConfigured applies the timeout's configured
	// [TimeoutConfig.IgnorePauseDelay] flag.
	PauseModeConfigured PauseMode = ""
	// PauseModeAdjust freezes the remaining time on pause and re-arms with
	// exactly that much on resume.
	PauseModeAdjust PauseMode = "adjust"
	// PauseModeIgnore keeps the original deadline running through the pause.
	// A timeout resumed past its deadline fires on the next sweep.
	PauseModeIgnore PauseMode = "ignore"
)

const (
	tmoEvtPause    = "pause"
	tmoEvtResume   = "resume"
	tmoEvtComplete = "complete"
)

// Timeout is a single unit of deferred work registered on a [Scheduler].
//
// A timeout never owns a runtime timer. It only carries its deadline and is
// visited by the scheduler's sweeps until it fires for the last time or is
// cancelled. All methods are safe for concurrent use.
type Timeout struct {
	sched  *Scheduler
	cfg    TimeoutConfig
	action func()
	fsm    *stateless.StateMachine

	// deadline, remaining and owner are guarded by the scheduler mutex.
	deadline  time.Time     // zero while paused with adjusting accounting
	remaining time.Duration // captured by an adjusting pause
	owner     *bucket       // nil once the timeout left its bucket
}

func newTimeout(sched *Scheduler, owner *bucket, cfg TimeoutConfig, action func(), deadline time.Time) *Timeout {
	tmo := &Timeout{
		sched:    sched,
		cfg:      cfg,
		action:   action,
		deadline: deadline,
		owner:    owner,
	}
	tmo.initFSM(TimeoutStatePending)
	return tmo
}

func (tmo *Timeout) initFSM(start TimeoutState) {
	tmo.fsm = stateless.NewStateMachine(start)

	tmo.fsm.Configure(TimeoutStatePending).
		Permit(tmoEvtPause, TimeoutStatePaused).
		Permit(tmoEvtComplete, TimeoutStateComplete)

	// Completion from the paused state covers an action pausing its own
	// timeout: a one-shot that already fired completes regardless.
	tmo.fsm.Configure(TimeoutStatePaused).
		Permit(tmoEvtResume, TimeoutStatePending).
		Permit(tmoEvtComplete, TimeoutStateComplete)
}

// State returns the current timeout state.
func (tmo *Timeout) State() TimeoutState {
	if tmo == nil {
		return ""
	}
	return tmo.fsm.MustState().(TimeoutState) //nolint:forcetypeassert
}

// Completed reports whether the timeout has fired for the last time.
func (tmo *Timeout) Completed() bool {
	return tmo.State() == TimeoutStateComplete
}

// Config returns the timeout config with scheduler-assigned defaults filled in.
func (tmo *Timeout) Config() TimeoutConfig {
	if tmo == nil {
		return TimeoutConfig{}
	}
	return tmo.cfg
}

// Deadline returns the absolute time the timeout is due to fire.
// It is zero while the timeout is paused with adjusting accounting.
func (tmo *Timeout) Deadline() time.Time {
	if tmo == nil {
		return time.Time{}
	}
	tmo.sched.mu.Lock()
	defer tmo.sched.mu.Unlock()
	return tmo.deadline
}

// Remaining returns the deadline minus the current clock time, regardless of
// the timeout state. While the timeout is paused with adjusting accounting
// there is no armed deadline and the returned value carries no meaning;
// it becomes meaningful again after resume.
func (tmo *Timeout) Remaining() time.Duration {
	if tmo == nil {
		return 0
	}
	tmo.sched.mu.Lock()
	defer tmo.sched.mu.Unlock()
	return tmo.deadline.Sub(tmo.sched.clk.Now())
}

// Pause excludes the timeout from sweeps until it is resumed.
// It reports whether the state changed: pausing a timeout that is not
// pending or that already left its bucket has no effect.
func (tmo *Timeout) Pause(mode PauseMode) bool {
	if tmo == nil {
		return false
	}
	tmo.sched.mu.Lock()
	defer tmo.sched.mu.Unlock()
	return tmo.pauseLocked(mode)
}

// Resume puts the paused timeout back under sweeps.
// It reports whether the state changed: resuming a timeout that is not
// paused or that already left its bucket has no effect.
func (tmo *Timeout) Resume(mode PauseMode) bool {
	if tmo == nil {
		return false
	}
	tmo.sched.mu.Lock()
	defer tmo.sched.mu.Unlock()
	return tmo.resumeLocked(mode)
}

// Cancel removes the timeout from its bucket so that it never fires again.
// The state is left unchanged. It reports whether the timeout was still
// registered: cancelling an already cancelled, overwritten or completed
// timeout has no effect.
func (tmo *Timeout) Cancel() bool {
	if tmo == nil {
		return false
	}
	tmo.sched.mu.Lock()
	defer tmo.sched.mu.Unlock()
	return tmo.cancelLocked()
}

// LogValue implements [slog.LogValuer].
func (tmo *Timeout) LogValue() slog.Value {
	if tmo == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("key", tmo.cfg.Key),
		slog.String("bucket", tmo.cfg.Bucket),
		slog.Any("state", tmo.State()),
	)
}

func (tmo *Timeout) pauseLocked(mode PauseMode) bool {
	if tmo.owner == nil || tmo.State() != TimeoutStatePending {
		return false
	}
	if err := tmo.fsm.Fire(tmoEvtPause); err != nil {
		panic(fmt.Errorf("fire %q in state %q: %w", tmoEvtPause, tmo.State(), err))
	}
	if !tmo.ignorePauseDelay(mode) {
		tmo.remaining = tmo.deadline.Sub(tmo.sched.clk.Now())
		tmo.deadline = time.Time{}
	}
	tmo.sched.log.Debug("timeout paused", slog.Any("timeout", tmo))
	return true
}

func (tmo *Timeout) resumeLocked(mode PauseMode) bool {
	if tmo.owner == nil || tmo.State() != TimeoutStatePaused {
		return false
	}
	if err := tmo.fsm.Fire(tmoEvtResume); err != nil {
		panic(fmt.Errorf("fire %q in state %q: %w", tmoEvtResume, tmo.State(), err))
	}
	// A remainder is captured only by an adjusting pause, an ignored pause
	// leaves the deadline armed.
	if !tmo.ignorePauseDelay(mode) && tmo.deadline.IsZero() {
		tmo.deadline = tmo.sched.clk.Now().Add(tmo.remaining)
		tmo.remaining = 0
	}
	tmo.sched.log.Debug("timeout resumed", slog.Any("timeout", tmo), slog.Time("deadline", tmo.deadline))
	return true
}

func (tmo *Timeout) cancelLocked() bool {
	if tmo.owner == nil {
		return false
	}
	tmo.dropLocked()
	tmo.sched.stats.cancelled.Add(1)
	tmo.sched.log.Debug("timeout cancelled", slog.Any("timeout", tmo))
	return true
}

func (tmo *Timeout) completeLocked() {
	if err := tmo.fsm.Fire(tmoEvtComplete); err != nil {
		panic(fmt.Errorf("fire %q in state %q: %w", tmoEvtComplete, tmo.State(), err))
	}
	tmo.dropLocked()
	tmo.sched.stats.completed.Add(1)
	tmo.sched.log.Debug("timeout completed", slog.Any("timeout", tmo))
}

// dropLocked detaches the timeout from its bucket, removing the bucket entry
// only if the timeout still occupies it.
func (tmo *Timeout) dropLocked() {
	if cur, ok := tmo.owner.entries[tmo.cfg.Key]; ok && cur == tmo {
		delete(tmo.owner.entries, tmo.cfg.Key)
	}
	tmo.owner = nil
}

func (tmo *Timeout) ignorePauseDelay(mode PauseMode) bool {
	switch mode {
	case PauseModeAdjust:
		return false
	case PauseModeIgnore:
		return true
	default:
		return tmo.cfg.IgnorePauseDelay
	}
}
