// Package metrics provides Prometheus instrumentation for the oximeter.
//
// Metrics exposed:
//   - pulseox_submissions_total: Counter of channel submissions by channel and outcome
//   - pulseox_pipeline_seconds: Histogram of per-submission pipeline duration
//   - pulseox_pairings_total: Counter of completed red/infrared pairings
//   - pulseox_ratio: Gauge of the latest ratio of ratios
//   - pulseox_spo2_percent: Gauge of the latest SpO2 estimate
//   - pulseox_heart_rate_bpm: Gauge of the latest heart rate per channel
//   - pulseox_pulses: Gauge of pulses measured in the latest submission per channel
//   - pulseox_publish_seconds: Histogram of snapshot publication duration
//   - pulseox_errors_total: Counter of errors by component and reason
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the oximeter.
type Metrics struct {
	SubmissionsTotal *prometheus.CounterVec
	PipelineSeconds  *prometheus.HistogramVec
	PairingsTotal    prometheus.Counter
	Ratio            prometheus.Gauge
	SpO2Percent      prometheus.Gauge
	HeartRateBPM     *prometheus.GaugeVec
	Pulses           *prometheus.GaugeVec
	PublishSeconds   prometheus.Histogram
	ErrorsTotal      *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. A nil reg registers
// with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulseox_submissions_total",
			Help: "Total number of channel submissions by outcome",
		}, []string{"channel", "outcome"}),

		PipelineSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pulseox_pipeline_seconds",
			Help:    "Time spent decoding, filtering and measuring one submission",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"channel"}),

		PairingsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulseox_pairings_total",
			Help: "Total number of completed red/infrared pairings",
		}),

		Ratio: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pulseox_ratio",
			Help: "Latest ratio of ratios",
		}),

		SpO2Percent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pulseox_spo2_percent",
			Help: "Latest SpO2 estimate",
		}),

		HeartRateBPM: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pulseox_heart_rate_bpm",
			Help: "Latest heart rate estimate per channel",
		}, []string{"channel"}),

		Pulses: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pulseox_pulses",
			Help: "Pulses measured in the latest submission per channel",
		}, []string{"channel"}),

		PublishSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulseox_publish_seconds",
			Help:    "Time spent publishing a snapshot to the store",
			Buckets: prometheus.DefBuckets,
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulseox_errors_total",
			Help: "Total number of errors by component and reason",
		}, []string{"component", "reason"}),
	}
}

// RecordSubmission counts a submission; outcome is "processed" or "rejected".
func (m *Metrics) RecordSubmission(channel, outcome string) {
	m.SubmissionsTotal.WithLabelValues(channel, outcome).Inc()
}

// RecordPipeline records the time spent in the pipeline.
func (m *Metrics) RecordPipeline(channel string, seconds float64) {
	m.PipelineSeconds.WithLabelValues(channel).Observe(seconds)
}

// RecordPairing counts a completed pairing.
func (m *Metrics) RecordPairing() {
	m.PairingsTotal.Inc()
}

// SetReading sets the ratio and SpO2 gauges to the latest reading.
func (m *Metrics) SetReading(ratio, spo2 float64) {
	m.Ratio.Set(ratio)
	m.SpO2Percent.Set(spo2)
}

// SetHeartRate sets the heart rate gauge of a channel.
func (m *Metrics) SetHeartRate(channel string, bpm float64) {
	m.HeartRateBPM.WithLabelValues(channel).Set(bpm)
}

// SetPulses sets the pulse count gauge of a channel.
func (m *Metrics) SetPulses(channel string, n int) {
	m.Pulses.WithLabelValues(channel).Set(float64(n))
}

// RecordPublish records the time spent publishing a snapshot.
func (m *Metrics) RecordPublish(seconds float64) {
	m.PublishSeconds.Observe(seconds)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
