package ppg

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the sampling and filtering parameters shared by every stage
// of the pipeline. The sensor samples at a fixed interval; the Nyquist bound
// used by the filter is derived from it rather than configured separately.
type Config struct {
	// SampleInterval is the time between two consecutive samples (4ms ⇒ 250 Hz).
	SampleInterval time.Duration

	// TrimHead and TrimTail are the number of samples discarded at the start
	// and end of each trace to drop sensor start-up and motion transients.
	TrimHead int
	TrimTail int

	// HighPassHz and LowPassHz bound the pass band of the filter.
	HighPassHz float64
	LowPassHz  float64

	// DCBias is the sensor reference offset added back after filtering.
	DCBias float64

	// ProminenceFactor scales the trace standard deviation into the minimum
	// prominence a peak or trough must have to be detected.
	ProminenceFactor float64

	// Precision is the number of decimal digits samples are rounded to on decode.
	Precision int
}

// DefaultConfig returns the parameters the sensor firmware is built for.
func DefaultConfig() Config {
	return Config{
		SampleInterval:   4 * time.Millisecond,
		TrimHead:         300,
		TrimTail:         500,
		HighPassHz:       0.7,
		LowPassHz:        5.5,
		DCBias:           1.65,
		ProminenceFactor: 0.5,
		Precision:        5,
	}
}

// SampleRate returns the sampling frequency in Hz.
func (c Config) SampleRate() float64 {
	return 1 / c.SampleInterval.Seconds()
}

// Nyquist returns half the sampling frequency in Hz.
func (c Config) Nyquist() float64 {
	return c.SampleRate() / 2
}

// MinSamples returns the smallest trace length that leaves at least two
// samples after trimming.
func (c Config) MinSamples() int {
	return c.TrimHead + c.TrimTail + 2
}

// Validate checks that the parameters describe a usable filter.
func (c Config) Validate() error {
	if c.SampleInterval <= 0 {
		return errors.New("sample interval must be > 0")
	}
	if c.TrimHead < 0 || c.TrimTail < 0 {
		return errors.New("trim lengths cannot be negative")
	}
	if c.HighPassHz < 0 {
		return errors.New("high-pass cutoff cannot be negative")
	}
	if c.LowPassHz <= c.HighPassHz {
		return fmt.Errorf("low-pass cutoff (%v Hz) must exceed high-pass cutoff (%v Hz)", c.LowPassHz, c.HighPassHz)
	}
	if c.LowPassHz > c.Nyquist() {
		return fmt.Errorf("low-pass cutoff (%v Hz) exceeds Nyquist limit (%v Hz)", c.LowPassHz, c.Nyquist())
	}
	if c.ProminenceFactor < 0 {
		return errors.New("prominence factor cannot be negative")
	}
	if c.Precision < 0 {
		return errors.New("precision cannot be negative")
	}
	return nil
}
