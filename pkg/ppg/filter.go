package ppg

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FilteredTrace is a band-passed trace paired with its time axis in seconds.
// Times are measured from the first sample of the untrimmed trace.
type FilteredTrace struct {
	Times  []float64
	Values []float64
}

// Len returns the number of samples in the trace.
func (t FilteredTrace) Len() int {
	return len(t.Values)
}

// Filter trims the transients off a raw trace and isolates its pulsatile
// component with an ideal (brick-wall) band-pass filter built in the
// frequency domain:
//
//  1. drop cfg.TrimHead leading and cfg.TrimTail trailing samples
//  2. transform and centre the spectrum on a ±Nyquist frequency axis
//  3. zero everything outside [HighPassHz, LowPassHz] on both sides of 0 Hz
//  4. transform back, add the DC bias and keep the magnitude
//
// The hard band edges ring (Gibbs phenomenon); for pulse detection at this
// signal quality that is tolerated.
func Filter(raw []float64, cfg Config) (FilteredTrace, error) {
	if len(raw) < cfg.MinSamples() {
		return FilteredTrace{}, fmt.Errorf("%w: %d samples, need at least %d", ErrTraceTooShort, len(raw), cfg.MinSamples())
	}

	trimmed := raw[cfg.TrimHead : len(raw)-cfg.TrimTail]
	n := len(trimmed)

	spectrum := shift(fft.FFTReal(trimmed), n/2)
	mask := bandMask(frequencyAxis(n, cfg.Nyquist()), cfg.HighPassHz, cfg.LowPassHz)
	for i := range spectrum {
		spectrum[i] *= complex(mask[i], 0)
	}

	inverse := fft.IFFT(shift(spectrum, n-n/2))
	bias := complex(cfg.DCBias, 0)

	dt := cfg.SampleInterval.Seconds()
	trace := FilteredTrace{
		Times:  make([]float64, n),
		Values: make([]float64, n),
	}
	for i, v := range inverse {
		trace.Times[i] = float64(cfg.TrimHead+i) * dt
		trace.Values[i] = cmplx.Abs(v + bias)
	}

	return trace, nil
}

// frequencyAxis spaces n points linearly over [-nyquist, nyquist].
func frequencyAxis(n int, nyquist float64) []float64 {
	freqs := make([]float64, n)
	if n == 1 {
		return freqs
	}
	step := 2 * nyquist / float64(n-1)
	for i := range freqs {
		freqs[i] = -nyquist + float64(i)*step
	}
	return freqs
}

// bandMask multiplies a low-pass mask (1 within ±low) by a high-pass mask
// (0 within ±high).
func bandMask(freqs []float64, high, low float64) []float64 {
	mask := make([]float64, len(freqs))
	for i, f := range freqs {
		lpf, hpf := 0.0, 1.0
		if f >= -low && f <= low {
			lpf = 1
		}
		if f >= -high && f <= high {
			hpf = 0
		}
		mask[i] = lpf * hpf
	}
	return mask
}

// shift rotates x right by k positions. A rotation by n/2 moves the zero
// frequency bin to the centre; a rotation by n-n/2 undoes it.
func shift(x []complex128, k int) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for i, v := range x {
		out[(i+k)%n] = v
	}
	return out
}
