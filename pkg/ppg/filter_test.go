package ppg

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestFilter_PassesInBandSinusoid(t *testing.T) {
	cfg := DefaultConfig()
	// 1200 trimmed samples hold exactly 12 periods of 2.5 Hz.
	raw := sineWave(2000, 2.5, 0.5, 1.0)

	trace, err := Filter(raw, cfg)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}

	if trace.Len() != 1200 {
		t.Fatalf("Len() = %d, want 1200", trace.Len())
	}

	hi, lo := floats.Max(trace.Values), floats.Min(trace.Values)
	if !almostEqual(hi, cfg.DCBias+0.5, 1e-6) {
		t.Errorf("max = %v, want %v", hi, cfg.DCBias+0.5)
	}
	if !almostEqual(lo, cfg.DCBias-0.5, 1e-6) {
		t.Errorf("min = %v, want %v", lo, cfg.DCBias-0.5)
	}
}

func TestFilter_AttenuatesOutOfBandSinusoid(t *testing.T) {
	cfg := DefaultConfig()
	raw := sineWave(2000, 10, 0.5, 1.0)

	trace, err := Filter(raw, cfg)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}

	spread := floats.Max(trace.Values) - floats.Min(trace.Values)
	if spread > 1e-6 {
		t.Errorf("peak-to-peak = %v, want ~0", spread)
	}
	if !almostEqual(trace.Values[0], cfg.DCBias, 1e-6) {
		t.Errorf("value = %v, want DC bias %v", trace.Values[0], cfg.DCBias)
	}
}

func TestFilter_TimeAxis(t *testing.T) {
	cfg := DefaultConfig()
	trace, err := Filter(sineWave(1000, 2, 0.3, 0), cfg)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}

	if len(trace.Times) != trace.Len() {
		t.Fatalf("len(Times) = %d, want %d", len(trace.Times), trace.Len())
	}
	if !almostEqual(trace.Times[0], 1.2, 1e-12) {
		t.Errorf("Times[0] = %v, want 1.2", trace.Times[0])
	}
	if !almostEqual(trace.Times[1]-trace.Times[0], 0.004, 1e-12) {
		t.Errorf("interval = %v, want 0.004", trace.Times[1]-trace.Times[0])
	}
}

func TestFilter_TooShort(t *testing.T) {
	cfg := DefaultConfig()
	for _, n := range []int{0, 500, 800, 801} {
		if _, err := Filter(make([]float64, n), cfg); !errors.Is(err, ErrTraceTooShort) {
			t.Errorf("Filter(%d samples) error = %v, want ErrTraceTooShort", n, err)
		}
	}
	if _, err := Filter(make([]float64, 802), cfg); err != nil {
		t.Errorf("Filter(802 samples) error = %v, want nil", err)
	}
}

func TestShift_RoundTrip(t *testing.T) {
	for _, n := range []int{4, 5} {
		x := make([]complex128, n)
		for i := range x {
			x[i] = complex(float64(i), 0)
		}
		centred := shift(x, n/2)
		if real(centred[n/2]) != 0 {
			t.Errorf("n=%d: zero bin at %v, want centre", n, centred[n/2])
		}
		back := shift(centred, n-n/2)
		for i := range back {
			if back[i] != x[i] {
				t.Errorf("n=%d: back[%d] = %v, want %v", n, i, back[i], x[i])
			}
		}
	}
}

func TestBandMask(t *testing.T) {
	freqs := []float64{-10, -5, -1, -0.5, 0, 0.5, 1, 5, 10}
	want := []float64{0, 1, 1, 0, 0, 0, 1, 1, 0}

	got := bandMask(freqs, 0.7, 5.5)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mask[%v Hz] = %v, want %v", freqs[i], got[i], want[i])
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero interval", func(c *Config) { c.SampleInterval = 0 }, true},
		{"negative trim", func(c *Config) { c.TrimHead = -1 }, true},
		{"inverted band", func(c *Config) { c.LowPassHz = 0.5 }, true},
		{"above nyquist", func(c *Config) { c.LowPassHz = 200 }, true},
		{"negative prominence", func(c *Config) { c.ProminenceFactor = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Nyquist(t *testing.T) {
	cfg := DefaultConfig()
	if !almostEqual(cfg.SampleRate(), 250, 1e-9) {
		t.Errorf("SampleRate() = %v, want 250", cfg.SampleRate())
	}
	if !almostEqual(cfg.Nyquist(), 125, 1e-9) {
		t.Errorf("Nyquist() = %v, want 125", cfg.Nyquist())
	}
}
