package ppg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// spreadEpsilon is the relative standard deviation below which per-pulse
// ratios are treated as identical, so rounding noise cannot reject them all.
const spreadEpsilon = 1e-9

// RatioPolicy controls the degenerate cases of outlier rejection.
type RatioPolicy struct {
	// FallbackToMean returns the unfiltered mean when every ratio is
	// rejected as an outlier instead of failing with ErrNoValidRatio.
	FallbackToMean bool
}

// Ratio combines a red and an infrared measurement into the ratio of ratios
//
//	r_i = (redAC_i / redDC_i) / (irAC_i / irDC_i)
//
// and returns the mean of the r_i lying strictly within one (population)
// standard deviation of their mean.
//
// Pulses are paired by position. When the channels detected a different
// number of pulses both are cut to the shorter length, keeping the earliest
// pulses. Pulse detection runs per channel, so this pairing is positional
// only and not a verified temporal alignment.
func Ratio(red, ir Measurement, policy RatioPolicy) (float64, error) {
	n := min(red.Pulses(), ir.Pulses())
	if n == 0 {
		return 0, fmt.Errorf("%w: no aligned pulses (red=%d, infrared=%d)", ErrNoValidRatio, red.Pulses(), ir.Pulses())
	}

	ratios := make([]float64, n)
	for i := 0; i < n; i++ {
		if red.DC[i] == 0 || ir.DC[i] == 0 {
			return 0, fmt.Errorf("%w: zero DC at pulse %d", ErrArithmetic, i)
		}
		if ir.AC[i] == 0 {
			return 0, fmt.Errorf("%w: zero infrared AC at pulse %d", ErrArithmetic, i)
		}
		ratios[i] = (red.AC[i] / red.DC[i]) / (ir.AC[i] / ir.DC[i])
	}

	mean, std := stat.PopMeanStdDev(ratios, nil)
	if std <= spreadEpsilon*math.Abs(mean) {
		return mean, nil
	}

	kept := make([]float64, 0, n)
	for _, r := range ratios {
		if math.Abs(r-mean) < std {
			kept = append(kept, r)
		}
	}

	if len(kept) == 0 {
		if policy.FallbackToMean {
			return mean, nil
		}
		return 0, fmt.Errorf("%w: all %d ratios rejected as outliers", ErrNoValidRatio, n)
	}

	return stat.Mean(kept, nil), nil
}
