package gotick

import (
	"sync/atomic"
	"time"
)

// StatsReport is a snapshot of scheduler activity.
type StatsReport struct {
	Time time.Time `json:"time"`
	// Ticks is a number of processed ticks.
	Ticks uint64 `json:"ticks"`
	// TimeoutsAdded is a number of registered timeouts.
	TimeoutsAdded uint64 `json:"timeouts_added"`
	// TimeoutsFired is a number of timeout action invocations.
	TimeoutsFired uint64 `json:"timeouts_fired"`
	// TimeoutsCompleted is a number of non-recurring timeouts evicted after firing.
	TimeoutsCompleted uint64 `json:"timeouts_completed"`
	// TimeoutsOverwritten is a number of timeouts replaced by an overwriting registration.
	TimeoutsOverwritten uint64 `json:"timeouts_overwritten"`
	// TimeoutsCancelled is a number of cancelled timeouts.
	TimeoutsCancelled uint64 `json:"timeouts_cancelled"`
	// ActionsPanicked is a number of timeout actions that panicked.
	ActionsPanicked uint64 `json:"actions_panicked"`
	// Buckets is a number of existing buckets.
	Buckets int `json:"buckets"`
	// PendingTimeouts is a number of currently pending timeouts.
	PendingTimeouts int `json:"pending_timeouts"`
	// PausedTimeouts is a number of currently paused timeouts.
	PausedTimeouts int `json:"paused_timeouts"`
}

// StatsRecorder records scheduler activity counters.
type StatsRecorder struct {
	ticks,
	added,
	fired,
	completed,
	overwritten,
	cancelled,
	panicked atomic.Uint64
}

func (rcdr *StatsRecorder) report(now time.Time) StatsReport {
	return StatsReport{
		Time:                now,
		Ticks:               rcdr.ticks.Load(),
		TimeoutsAdded:       rcdr.added.Load(),
		TimeoutsFired:       rcdr.fired.Load(),
		TimeoutsCompleted:   rcdr.completed.Load(),
		TimeoutsOverwritten: rcdr.overwritten.Load(),
		TimeoutsCancelled:   rcdr.cancelled.Load(),
		ActionsPanicked:     rcdr.panicked.Load(),
	}
}
