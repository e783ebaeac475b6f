package ppg

import (
	"math"
	"strconv"
	"strings"
)

// sineWave samples offset + amp·sin(2π·freq·t) at the default 4ms interval.
func sineWave(n int, freq, amp, offset float64) []float64 {
	dt := DefaultConfig().SampleInterval.Seconds()
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + amp*math.Sin(2*math.Pi*freq*float64(i)*dt)
	}
	return out
}

func encode(samples []float64) string {
	parts := make([]string, len(samples))
	for i, v := range samples {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
