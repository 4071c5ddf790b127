package service

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange      = errors.New("temperature out of range")
	ErrInvalidMode     = errors.New("invalid mode: must be one of heat, cool, auto, off")
	ErrInvalidTempKind = errors.New("invalid temperature kind: must be heat or cool")
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrInvalidSensor   = errors.New("invalid sensor")
	ErrNotFound        = errors.New("not found")

	errQueueFull = errors.New("queue full")
)

// OutOfRangeError reports a requested setpoint outside the accepted bounds.
type OutOfRangeError struct {
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("temperature %.1f°F out of range [%.1f, %.1f]", e.Value, e.Min, e.Max)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// IsValidation reports whether err is a caller mistake rather than an internal
// failure.
func IsValidation(err error) bool {
	for _, target := range []error{ErrOutOfRange, ErrInvalidMode, ErrInvalidTempKind, ErrInvalidSchedule, ErrInvalidSensor, ErrInvalidTimeRange} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
