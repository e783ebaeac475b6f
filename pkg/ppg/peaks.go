package ppg

import (
	"gonum.org/v1/gonum/stat"
)

// Extrema holds the sample indices of the peaks and troughs detected in a
// filtered trace. Both slices are strictly increasing.
type Extrema struct {
	Peaks   []int
	Troughs []int
}

// Extract detects peaks and troughs whose prominence is at least factor
// times the population standard deviation of the trace. Troughs are the
// peaks of the negated trace under the same threshold; negation leaves the
// standard deviation unchanged.
//
// Fewer than two peaks or troughs is not an error here: heart rate
// estimation and AC/DC extraction each define how they treat it.
func Extract(values []float64, factor float64) Extrema {
	if len(values) == 0 {
		return Extrema{}
	}

	_, std := stat.PopMeanStdDev(values, nil)
	threshold := factor * std

	negated := make([]float64, len(values))
	for i, v := range values {
		negated[i] = -v
	}

	return Extrema{
		Peaks:   FindPeaks(values, threshold),
		Troughs: FindPeaks(negated, threshold),
	}
}

// FindPeaks returns the indices of local maxima in x whose topographic
// prominence is at least minProminence.
//
// A local maximum is a sample (or a flat run of equal samples) with strictly
// lower neighbours on both sides; a flat run is reported at its middle
// sample, rounding down. The first and last samples are never peaks.
//
// The prominence of a peak is its height above the higher of the two lowest
// points reached when walking outward on each side until a sample higher
// than the peak, or the end of the trace, is met.
func FindPeaks(x []float64, minProminence float64) []int {
	var peaks []int
	for _, p := range localMaxima(x) {
		if prominence(x, p) >= minProminence {
			peaks = append(peaks, p)
		}
	}
	return peaks
}

func localMaxima(x []float64) []int {
	var maxima []int
	last := len(x) - 1

	for i := 1; i < last; i++ {
		if x[i-1] >= x[i] {
			continue
		}

		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}

		if x[ahead] < x[i] {
			maxima = append(maxima, (i+ahead-1)/2)
			i = ahead
		}
	}

	return maxima
}

func prominence(x []float64, peak int) float64 {
	height := x[peak]

	leftMin := height
	for i := peak; i >= 0 && x[i] <= height; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
		}
	}

	rightMin := height
	for i := peak; i < len(x) && x[i] <= height; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
		}
	}

	return height - max(leftMin, rightMin)
}
