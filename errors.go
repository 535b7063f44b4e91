package gotick

import (
	"github.com/ghettovoice/gotick/internal/errorutil"
)

// Error represents a gotick error.
type Error = errorutil.Error

const (
	// ErrInvalidArgument is an error returned when an invalid argument is provided.
	ErrInvalidArgument = errorutil.ErrInvalidArgument
	// ErrInvalidTimeoutConfig is an error returned when a timeout config is invalid.
	ErrInvalidTimeoutConfig Error = "invalid timeout config"
)

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}

// NewInvalidTimeoutConfigError creates a new error with [ErrInvalidTimeoutConfig] or
// wraps provided error with [ErrInvalidTimeoutConfig].
func NewInvalidTimeoutConfigError(args ...any) error {
	return errorutil.NewWrapperError(ErrInvalidTimeoutConfig, args...) //errtrace:skip
}
