package analytics

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData reports that a period or window holds too few
	// observations to compute a result. It is recoverable.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrEmptyInput is returned when fewer than two prices are available.
	ErrEmptyInput = fmt.Errorf("%w: fewer than two observations", ErrInsufficientData)

	// ErrInvalidSeries reports unordered timestamps or non-positive prices.
	ErrInvalidSeries = errors.New("invalid series")
)

// ConfigError reports a caller-supplied parameter that blocks computation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
