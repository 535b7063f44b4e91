package gotick

import (
	"log/slog"
	"time"

	"braces.dev/errtrace"
)

// DefaultBucketKey is the bucket key used for timeouts registered
// without an explicit bucket.
const DefaultBucketKey = "default"

// TimeoutConfig represents a timeout registration config.
type TimeoutConfig struct {
	// Delay is the duration from registration to the first firing.
	// It is required and must be positive.
	Delay time.Duration `json:"delay"`
	// Recurring makes the timeout re-arm for another Delay after each firing
	// instead of completing.
	Recurring bool `json:"recurring,omitempty"`
	// Key identifies the timeout within its bucket.
	// If empty, a scheduler-assigned auto-incrementing key is used.
	Key string `json:"key,omitempty"`
	// Bucket is the key of the bucket the timeout belongs to.
	// If empty, [DefaultBucketKey] is used.
	Bucket string `json:"bucket,omitempty"`
	// OverwriteKey selects the collision policy for an occupied (bucket, key)
	// slot: false keeps the already registered timeout, true replaces it.
	OverwriteKey bool `json:"overwrite_key,omitempty"`
	// IgnorePauseDelay is the pause accounting mode applied when the timeout
	// is paused or resumed with [PauseModeConfigured]: false freezes the
	// remaining time for the duration of the pause, true lets the original
	// deadline keep running through it.
	IgnorePauseDelay bool `json:"ignore_pause_delay,omitempty"`
}

// Validate checks that the config can be registered.
func (c TimeoutConfig) Validate() error {
	if c.Delay <= 0 {
		return errtrace.Wrap(NewInvalidTimeoutConfigError("delay must be positive, got %v", c.Delay))
	}
	return nil
}

// LogValue implements [slog.LogValuer].
func (c TimeoutConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("key", c.Key),
		slog.String("bucket", c.Bucket),
		slog.Duration("delay", c.Delay),
		slog.Bool("recurring", c.Recurring),
	)
}
