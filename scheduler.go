package gotick

//go:generate go tool errtrace -w .

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/gotick/clock"
	"github.com/ghettovoice/gotick/log"
)

// SchedulerOptions are the options for a [Scheduler].
type SchedulerOptions struct {
	// NoAutoStart suppresses the automatic [Scheduler.Start] on construction.
	NoAutoStart bool
	// Clock is the time source.
	// If nil, the [clock.System] is used.
	Clock clock.Clock
	// Logger is the logger.
	// If nil, the [log.Default] is used.
	Logger *slog.Logger
}

func (o *SchedulerOptions) autoStart() bool {
	return o == nil || !o.NoAutoStart
}

func (o *SchedulerOptions) clock() clock.Clock {
	if o == nil || o.Clock == nil {
		return clock.System()
	}
	return o.Clock
}

func (o *SchedulerOptions) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// Scheduler multiplexes any number of logical timeouts onto a single
// repeating tick.
//
// Instead of arming one runtime timer per registration, the scheduler keeps
// a single timer in flight. Each time it fires, the scheduler sweeps all
// buckets, invokes the actions of the timeouts whose deadline has passed and
// schedules the next tick. Actions run synchronously on the tick goroutine,
// so a slow action delays the rest of the sweep and the next tick with it.
type Scheduler struct {
	clk      clock.Clock
	log      *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	keySeq  uint64
	running bool
	paused  bool
	tick    clock.Timer
	tickSeq uint64
	tickDue time.Time
	tickRem time.Duration

	stats StatsRecorder
}

// NewScheduler creates a new [Scheduler] sweeping its timeouts every tickInterval.
// Unless suppressed with [SchedulerOptions.NoAutoStart], the tick loop starts
// immediately. Options are optional, if nil, default values are used
// (see [SchedulerOptions]).
func NewScheduler(tickInterval time.Duration, opts *SchedulerOptions) (*Scheduler, error) {
	if tickInterval <= 0 {
		return nil, errtrace.Wrap(NewInvalidArgumentError("tick interval must be positive, got %v", tickInterval))
	}

	sched := &Scheduler{
		clk:      opts.clock(),
		log:      opts.log(),
		interval: tickInterval,
		buckets:  map[string]*bucket{DefaultBucketKey: newBucket(DefaultBucketKey)},
	}
	if opts.autoStart() {
		sched.Start()
	}
	return sched, nil
}

// LogValue implements [slog.LogValuer].
func (sched *Scheduler) LogValue() slog.Value {
	if sched == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("ptr", fmt.Sprintf("%p", sched)),
		slog.Duration("interval", sched.interval),
	)
}

// Start begins the tick loop. It is a no-op if the loop is already running,
// so a second loop can never start behind the first. After [Scheduler.Stop]
// it begins a fresh loop over whatever is currently registered.
func (sched *Scheduler) Start() {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	if sched.running {
		return
	}
	sched.running = true
	if !sched.paused {
		sched.scheduleTickLocked(sched.interval)
	}
	sched.log.Debug("scheduler started", slog.Any("scheduler", sched))
}

// Stop cancels the pending tick and discards all buckets.
// Every registered timeout is abandoned: handles held by callers keep their
// state but never fire again and ignore pause, resume and cancel. The
// scheduler itself stays usable, new registrations land in fresh buckets and
// [Scheduler.Start] picks them up. Stopping an already stopped scheduler is
// a no-op.
func (sched *Scheduler) Stop() {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	sched.running = false
	sched.paused = false
	sched.tickRem = 0
	sched.cancelTickLocked()
	for _, b := range sched.buckets {
		b.detachAll()
	}
	sched.buckets = map[string]*bucket{DefaultBucketKey: newBucket(DefaultBucketKey)}
	sched.log.Debug("scheduler stopped", slog.Any("scheduler", sched))
}

// Running reports whether the tick loop is started.
// It stays true while the scheduler is paused.
func (sched *Scheduler) Running() bool {
	sched.mu.Lock()
	defer sched.mu.Unlock()
	return sched.running
}

// Paused reports whether the scheduler is paused with [Scheduler.Pause].
func (sched *Scheduler) Paused() bool {
	sched.mu.Lock()
	defer sched.mu.Unlock()
	return sched.paused
}

// Add registers action to run after the config delay.
//
// A nil action fails with [ErrInvalidArgument], a non-positive delay with
// [ErrInvalidTimeoutConfig]. An empty config key is replaced with a
// scheduler-assigned auto-incrementing key, an empty bucket key with
// [DefaultBucketKey], missing buckets are created on demand.
//
// When the (bucket, key) slot is already occupied, the collision is resolved
// by [TimeoutConfig.OverwriteKey]: with it unset the existing timeout is
// kept, its handle is returned and the new registration is discarded; with
// it set the existing timeout is replaced and its handles become inert.
// Replacing restarts the delay from now, so repeated overwriting
// registrations keep pushing the firing forward (debounce).
//
// Registration works regardless of the tick loop state. Timeouts added to a
// stopped scheduler are swept once it is started.
func (sched *Scheduler) Add(action func(), cfg TimeoutConfig) (*Timeout, error) {
	if action == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil action"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errtrace.Wrap(err)
	}

	sched.mu.Lock()
	defer sched.mu.Unlock()

	if cfg.Key == "" {
		cfg.Key = strconv.FormatUint(sched.keySeq, 10)
		sched.keySeq++
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucketKey
	}

	b := sched.buckets[cfg.Bucket]
	if b == nil {
		b = newBucket(cfg.Bucket)
		sched.buckets[cfg.Bucket] = b
	}

	if prev, ok := b.entries[cfg.Key]; ok {
		if !cfg.OverwriteKey {
			sched.log.Debug("timeout already registered", slog.Any("timeout", prev))
			return prev, nil
		}
		prev.owner = nil
		sched.stats.overwritten.Add(1)
		sched.log.Debug("timeout overwritten", slog.Any("timeout", prev))
	}

	tmo := newTimeout(sched, b, cfg, action, sched.clk.Now().Add(cfg.Delay))
	b.entries[cfg.Key] = tmo
	sched.stats.added.Add(1)
	sched.log.Debug("timeout registered", slog.Any("timeout", tmo), slog.Time("deadline", tmo.deadline))
	return tmo, nil
}

// After registers action to run once after delay under a scheduler-assigned
// key in the default bucket. It is a shorthand for [Scheduler.Add] with a
// config of a bare delay.
func (sched *Scheduler) After(delay time.Duration, action func()) (*Timeout, error) {
	return errtrace.Wrap2(sched.Add(action, TimeoutConfig{Delay: delay}))
}

// Pause pauses every pending timeout in every bucket and holds the tick
// loop, remembering how much of the current tick interval was left. Pausing
// an already paused scheduler is a no-op.
func (sched *Scheduler) Pause(mode PauseMode) {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	if sched.paused {
		return
	}
	sched.paused = true
	n := 0
	for _, b := range sched.buckets {
		for _, tmo := range b.entries {
			if tmo.pauseLocked(mode) {
				n++
			}
		}
	}
	sched.tickRem = sched.tickDue.Sub(sched.clk.Now())
	sched.cancelTickLocked()
	sched.log.Debug("scheduler paused",
		slog.Any("scheduler", sched),
		slog.Int("timeouts", n),
		slog.Duration("tick_remaining", sched.tickRem),
	)
}

// Resume resumes every paused timeout in every bucket and reschedules the
// tick with the interval remainder captured by [Scheduler.Pause], keeping
// the tick cadence in phase. Resuming a scheduler that is not paused is a
// no-op.
func (sched *Scheduler) Resume(mode PauseMode) {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	if !sched.paused {
		return
	}
	sched.paused = false
	n := 0
	for _, b := range sched.buckets {
		for _, tmo := range b.entries {
			if tmo.resumeLocked(mode) {
				n++
			}
		}
	}
	if sched.running {
		sched.scheduleTickLocked(sched.tickRem)
	}
	sched.tickRem = 0
	sched.log.Debug("scheduler resumed", slog.Any("scheduler", sched), slog.Int("timeouts", n))
}

// PauseBucket pauses every pending timeout in the bucket.
// Unknown bucket keys are ignored.
func (sched *Scheduler) PauseBucket(bucketKey string, mode PauseMode) {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	b := sched.buckets[bucketKey]
	if b == nil {
		return
	}
	for _, tmo := range b.entries {
		tmo.pauseLocked(mode)
	}
}

// ResumeBucket resumes every paused timeout in the bucket.
// Unknown bucket keys are ignored.
func (sched *Scheduler) ResumeBucket(bucketKey string, mode PauseMode) {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	b := sched.buckets[bucketKey]
	if b == nil {
		return
	}
	for _, tmo := range b.entries {
		tmo.resumeLocked(mode)
	}
}

// PauseTimeout pauses the timeout registered under key in the default bucket.
// The second result reports whether such a timeout is registered.
func (sched *Scheduler) PauseTimeout(key string, mode PauseMode) (*Timeout, bool) {
	return sched.PauseTimeoutIn(DefaultBucketKey, key, mode)
}

// PauseTimeoutIn pauses the timeout registered under key in the bucket.
// The second result reports whether such a timeout is registered.
func (sched *Scheduler) PauseTimeoutIn(bucketKey, key string, mode PauseMode) (*Timeout, bool) {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	tmo := sched.lookupLocked(bucketKey, key)
	if tmo == nil {
		return nil, false
	}
	tmo.pauseLocked(mode)
	return tmo, true
}

// ResumeTimeout resumes the timeout registered under key in the default bucket.
// The second result reports whether such a timeout is registered.
func (sched *Scheduler) ResumeTimeout(key string, mode PauseMode) (*Timeout, bool) {
	return sched.ResumeTimeoutIn(DefaultBucketKey, key, mode)
}

// ResumeTimeoutIn resumes the timeout registered under key in the bucket.
// The second result reports whether such a timeout is registered.
func (sched *Scheduler) ResumeTimeoutIn(bucketKey, key string, mode PauseMode) (*Timeout, bool) {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	tmo := sched.lookupLocked(bucketKey, key)
	if tmo == nil {
		return nil, false
	}
	tmo.resumeLocked(mode)
	return tmo, true
}

// TimeoutForKey returns the timeout registered under key in the default bucket.
// The second result reports whether such a timeout is registered.
func (sched *Scheduler) TimeoutForKey(key string) (*Timeout, bool) {
	return sched.TimeoutForKeyIn(DefaultBucketKey, key)
}

// TimeoutForKeyIn returns the timeout registered under key in the bucket.
// The second result reports whether such a timeout is registered.
func (sched *Scheduler) TimeoutForKeyIn(bucketKey, key string) (*Timeout, bool) {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	tmo := sched.lookupLocked(bucketKey, key)
	return tmo, tmo != nil
}

// Timeouts returns the timeouts registered in the default bucket,
// in no particular order.
func (sched *Scheduler) Timeouts() []*Timeout {
	return sched.TimeoutsForBucket(DefaultBucketKey)
}

// TimeoutsForBucket returns the timeouts registered in the bucket,
// in no particular order. Unknown bucket keys yield nil.
func (sched *Scheduler) TimeoutsForBucket(bucketKey string) []*Timeout {
	sched.mu.Lock()
	defer sched.mu.Unlock()

	b := sched.buckets[bucketKey]
	if b == nil {
		return nil
	}
	return b.timeouts()
}

// Stats returns a snapshot of the scheduler activity.
// Call this function periodically to get updated values.
func (sched *Scheduler) Stats() StatsReport {
	report := sched.stats.report(sched.clk.Now())

	sched.mu.Lock()
	defer sched.mu.Unlock()
	report.Buckets = len(sched.buckets)
	for _, b := range sched.buckets {
		for _, tmo := range b.entries {
			switch tmo.State() { //nolint:exhaustive
			case TimeoutStatePending:
				report.PendingTimeouts++
			case TimeoutStatePaused:
				report.PausedTimeouts++
			}
		}
	}
	return report
}

func (sched *Scheduler) lookupLocked(bucketKey, key string) *Timeout {
	b := sched.buckets[bucketKey]
	if b == nil {
		return nil
	}
	return b.entries[key]
}

// scheduleTickLocked arms the next tick after d and records when it is due.
// The tick sequence number invalidates callbacks of previously armed ticks,
// keeping at most one tick live even when a stopped timer had already fired.
func (sched *Scheduler) scheduleTickLocked(d time.Duration) {
	sched.tickSeq++
	seq := sched.tickSeq
	sched.tickDue = sched.clk.Now().Add(d)
	sched.tick = sched.clk.AfterFunc(d, func() { sched.onTick(seq) })
}

func (sched *Scheduler) cancelTickLocked() {
	sched.tickSeq++
	if sched.tick != nil {
		sched.tick.Stop()
		sched.tick = nil
	}
}

func (sched *Scheduler) onTick(seq uint64) {
	sched.mu.Lock()
	if seq != sched.tickSeq || !sched.running || sched.paused {
		sched.mu.Unlock()
		return
	}
	sched.tick = nil
	sched.stats.ticks.Add(1)
	due := sched.collectDueLocked()
	sched.mu.Unlock()

	for _, tmo := range due {
		sched.fireTimeout(tmo)
	}

	sched.mu.Lock()
	if sched.running && !sched.paused && seq == sched.tickSeq {
		sched.scheduleTickLocked(sched.interval)
	}
	sched.mu.Unlock()
}

func (sched *Scheduler) collectDueLocked() []*Timeout {
	now := sched.clk.Now()
	var due []*Timeout
	for _, b := range sched.buckets {
		for _, tmo := range b.entries {
			if tmo.State() == TimeoutStatePending && !tmo.deadline.After(now) {
				due = append(due, tmo)
			}
		}
	}
	return due
}

// fireTimeout invokes the timeout action and settles the timeout afterwards.
// The mutex is released around the action, so the due state is verified
// again first. An action that cancelled, overwrote or paused this timeout
// earlier in the same sweep keeps it from firing.
func (sched *Scheduler) fireTimeout(tmo *Timeout) {
	sched.mu.Lock()
	if tmo.owner == nil || tmo.State() != TimeoutStatePending || tmo.deadline.After(sched.clk.Now()) {
		sched.mu.Unlock()
		return
	}
	sched.mu.Unlock()

	sched.log.Debug("timeout fired", slog.Any("timeout", tmo))
	sched.invoke(tmo)
	sched.stats.fired.Add(1)

	sched.mu.Lock()
	defer sched.mu.Unlock()
	if tmo.owner == nil {
		// Cancelled or overwritten by its own action.
		return
	}
	if tmo.cfg.Recurring {
		tmo.deadline = sched.clk.Now().Add(tmo.cfg.Delay)
		return
	}
	tmo.completeLocked()
}

func (sched *Scheduler) invoke(tmo *Timeout) {
	defer func() {
		if r := recover(); r != nil {
			sched.stats.panicked.Add(1)
			sched.log.Error("timeout action panicked",
				slog.Any("timeout", tmo),
				slog.Any("reason", log.FmtValue(r, false)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	tmo.action()
}
