package ppg

import "fmt"

// PeakTimes maps peak indices onto the trace's time axis.
func PeakTimes(trace FilteredTrace, peaks []int) []float64 {
	times := make([]float64, len(peaks))
	for i, p := range peaks {
		times[i] = trace.Times[p]
	}
	return times
}

// HeartRate returns beats per minute from the widest gap between successive
// peak times (in seconds). The widest gap is used instead of the mean so a
// spurious peak detected close to a real one does not inflate the rate.
func HeartRate(peakTimes []float64) (float64, error) {
	if len(peakTimes) < 2 {
		return 0, fmt.Errorf("%w: %d peaks, need at least 2", ErrInsufficientData, len(peakTimes))
	}

	widest := 0.0
	for i := 1; i < len(peakTimes); i++ {
		widest = max(widest, peakTimes[i]-peakTimes[i-1])
	}

	if widest <= 0 {
		return 0, fmt.Errorf("%w: peak times are not increasing", ErrInsufficientData)
	}

	return 60 / widest, nil
}
