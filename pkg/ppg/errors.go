package ppg

import "errors"

var (
	// ErrParse is returned when a sample payload contains a token that is not a finite decimal number.
	ErrParse = errors.New("malformed sample token")

	// ErrTooManySamples is returned when a payload exceeds the configured sample limit.
	ErrTooManySamples = errors.New("too many samples")

	// ErrTraceTooShort is returned when a trace leaves fewer than two samples after transient trimming.
	ErrTraceTooShort = errors.New("trace too short")

	// ErrInsufficientData is returned when fewer than two peaks are available for heart rate estimation.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrArithmetic is returned when a ratio would divide by zero.
	ErrArithmetic = errors.New("arithmetic error")

	// ErrNoValidRatio is returned when no per-pulse ratio survives outlier rejection.
	ErrNoValidRatio = errors.New("no valid ratio")
)
