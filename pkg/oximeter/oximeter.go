// Package oximeter holds the shared reading state fed by channel submissions.
//
// An Oximeter pairs one red and one infrared measurement per cycle. When
// both slots are filled the ratio of ratios is computed, the pair is cleared
// and the cycle starts over. The latest ratio and the two heart-rate slots
// are kept until replaced and projected into a Result on demand.
//
// All state lives behind one mutex: a submission's slot update, the ratio
// it may trigger and the reset are a single critical section, and Retrieve
// takes the same lock so it never sees a half-applied submission.
//
// If only one channel ever arrives the ratio is never updated. There is no
// timeout on a pending pair.
package oximeter

import (
	"fmt"
	"sync"
	"time"

	"github.com/HatiCode/pulseox/pkg/ppg"
)

// Result is the reading served to clients.
type Result struct {
	SpO2 float64
	// HeartRate is the mean of the two channel heart-rate slots.
	HeartRate float64
	// R is the ratio of ratios SpO2 was computed from.
	R float64
	// Ready is false until the first pairing has completed. SpO2 is then
	// computed from R = 0 and is not a physiological value.
	Ready bool
	// HeartRates holds the per-channel slots.
	HeartRates HeartRates
}

// HeartRates holds the latest heart rate estimate of each channel.
type HeartRates struct {
	Red      float64
	Infrared float64
}

// Mean returns the average of both slots.
func (h HeartRates) Mean() float64 {
	return (h.Red + h.Infrared) / 2
}

// Outcome describes the effect of an accepted submission.
type Outcome struct {
	Channel ppg.Channel
	// State is the pairing state after the submission.
	State State
	// Paired is true when the submission completed a pair and R was updated.
	Paired bool
	// R is the new ratio when Paired is true.
	R float64
	// Pulses is the number of aligned pulse pairs R was computed from.
	Pulses int
	// HeartRates is a copy of the heart-rate slots after the submission.
	HeartRates HeartRates
	// Seq numbers completed pairings from 1 and PairedAt records when the
	// pairing was committed. Both are zero when Paired is false. A higher
	// Seq always denotes a newer reading.
	Seq      uint64
	PairedAt time.Time
}

// Oximeter is safe for concurrent use.
type Oximeter struct {
	mu         sync.Mutex
	policy     ppg.RatioPolicy
	pair       pairing
	r          float64
	ready      bool
	heartRates HeartRates
	seq        uint64
	now        func() time.Time
}

// New creates an Oximeter with an empty pair and no ratio.
func New(policy ppg.RatioPolicy) *Oximeter {
	return &Oximeter{policy: policy, now: time.Now}
}

// Submit stores a channel measurement and, if it completes the pair,
// computes a new ratio. On error nothing is changed: the pending slot, the
// ratio and the heart-rate slots keep their previous values.
func (o *Oximeter) Submit(m ppg.Measurement) (Outcome, error) {
	if !m.Channel.Valid() {
		return Outcome{}, fmt.Errorf("unknown channel %q", m.Channel)
	}
	if len(m.AC) != len(m.DC) {
		return Outcome{}, fmt.Errorf("measurement for %s has %d AC values but %d DC values", m.Channel, len(m.AC), len(m.DC))
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	next := o.pair.with(m)
	out := Outcome{Channel: m.Channel}

	if next.complete() {
		r, err := ppg.Ratio(*next.red, *next.ir, o.policy)
		if err != nil {
			return Outcome{}, fmt.Errorf("ratio: %w", err)
		}
		out.Paired = true
		out.R = r
		out.Pulses = min(next.red.Pulses(), next.ir.Pulses())

		o.r = r
		o.ready = true
		o.seq++
		out.Seq = o.seq
		out.PairedAt = o.now()
		next = pairing{}
	}

	o.pair = next
	o.setHeartRate(m.Channel, m.HeartRate)
	out.State = o.pair.state()
	out.HeartRates = o.heartRates

	return out, nil
}

func (o *Oximeter) setHeartRate(ch ppg.Channel, hr float64) {
	switch ch {
	case ppg.Red:
		o.heartRates.Red = hr
	case ppg.Infrared:
		o.heartRates.Infrared = hr
	}
}

// Retrieve returns a consistent snapshot of the current reading.
func (o *Oximeter) Retrieve() Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Result{
		SpO2:       ppg.SpO2(o.r),
		HeartRate:  o.heartRates.Mean(),
		R:          o.r,
		Ready:      o.ready,
		HeartRates: o.heartRates,
	}
}

// State returns the current pairing state.
func (o *Oximeter) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pair.state()
}
