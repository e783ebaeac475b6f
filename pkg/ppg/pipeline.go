package ppg

import (
	"fmt"
	"strings"
)

// Measurement is the per-channel result of one submission: one AC and one
// DC value per detected pulse, plus the channel's heart rate estimate.
type Measurement struct {
	Channel   Channel
	AC        []float64
	DC        []float64
	HeartRate float64
}

// Pulses returns the number of pulses measured.
func (m Measurement) Pulses() int {
	return len(m.AC)
}

// Analysis carries every intermediate product of a pipeline run. The
// service only keeps the Measurement; the rest feeds debug tooling.
type Analysis struct {
	Samples     int
	Trace       FilteredTrace
	Extrema     Extrema
	Measurement Measurement
}

// Pipeline runs decode → filter → extract → measure for one channel.
type Pipeline struct {
	cfg        Config
	maxSamples int
}

// NewPipeline creates a pipeline. maxSamples bounds the size of a single
// submission; zero disables the bound.
func NewPipeline(cfg Config, maxSamples int) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Pipeline{cfg: cfg, maxSamples: maxSamples}, nil
}

// Config returns the pipeline's sampling parameters.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Analyze decodes a text payload and runs the pipeline on it.
func (p *Pipeline) Analyze(ch Channel, payload string) (Analysis, error) {
	if p.maxSamples > 0 {
		if strings.Count(payload, ",")+1 > p.maxSamples {
			return Analysis{}, fmt.Errorf("%w: limit is %d", ErrTooManySamples, p.maxSamples)
		}
	}

	samples, err := Decode(payload, p.cfg.Precision)
	if err != nil {
		return Analysis{}, err
	}

	return p.AnalyzeSamples(ch, samples)
}

// AnalyzeSamples runs the pipeline on already decoded samples.
func (p *Pipeline) AnalyzeSamples(ch Channel, samples []float64) (Analysis, error) {
	if !ch.Valid() {
		return Analysis{}, fmt.Errorf("unknown channel %q", ch)
	}

	trace, err := Filter(samples, p.cfg)
	if err != nil {
		return Analysis{}, fmt.Errorf("filter %s: %w", ch, err)
	}

	extrema := Extract(trace.Values, p.cfg.ProminenceFactor)

	hr, err := HeartRate(PeakTimes(trace, extrema.Peaks))
	if err != nil {
		return Analysis{}, fmt.Errorf("heart rate %s: %w", ch, err)
	}

	ac, dc := ExtractACDC(trace.Values, extrema.Troughs)

	return Analysis{
		Samples: len(samples),
		Trace:   trace,
		Extrema: extrema,
		Measurement: Measurement{
			Channel:   ch,
			AC:        ac,
			DC:        dc,
			HeartRate: hr,
		},
	}, nil
}
