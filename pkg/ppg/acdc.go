package ppg

import "gonum.org/v1/gonum/floats"

// ExtractACDC measures one pulse per pair of adjacent troughs. The pulse
// segment runs from one sample before the first trough to one sample after
// the second (clamped to the trace); DC is the segment minimum and AC the
// segment's peak-to-trough span.
//
// The returned slices always have equal length, len(troughs)-1, and are
// empty when fewer than two troughs are given.
func ExtractACDC(values []float64, troughs []int) (ac, dc []float64) {
	if len(troughs) < 2 {
		return []float64{}, []float64{}
	}

	ac = make([]float64, 0, len(troughs)-1)
	dc = make([]float64, 0, len(troughs)-1)

	for i := 0; i < len(troughs)-1; i++ {
		start := max(troughs[i]-1, 0)
		end := min(troughs[i+1]+2, len(values))
		segment := values[start:end]

		lo, hi := floats.Min(segment), floats.Max(segment)
		dc = append(dc, lo)
		ac = append(ac, hi-lo)
	}

	return ac, dc
}
