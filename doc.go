// Package gotick implements a cooperative timer multiplexer that runs any
// number of logical timeouts on top of a single repeating tick.
//
// A [Scheduler] keeps keyed [Timeout] registrations grouped into named
// buckets and sweeps them on every tick, invoking the actions of those whose
// deadline has passed. One-shot timeouts complete and leave their bucket
// after firing, recurring timeouts re-arm relative to the firing time.
// Registering under an occupied key either keeps the existing timeout or
// replaces it, which makes repeated registrations collapse into a single
// deferred firing (debounce). Timeouts can be paused and resumed one at a
// time, per bucket or scheduler-wide, with a choice between freezing the
// remaining time and letting the original deadline run through the pause.
//
// Firing resolution is bounded by the tick interval: an expired timeout
// fires on the next sweep after its deadline, not at the deadline itself.
package gotick

// Version is the current gotick package version
var Version = "0.0.0"
