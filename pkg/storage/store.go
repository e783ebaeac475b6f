// Package storage publishes the latest paired reading for readers outside
// the oximeter process.
//
// Only the most recent snapshot is kept and it expires after a TTL: the
// store is a hand-off point for dashboards and other services, not a
// history of readings.
package storage

import (
	"context"
	"errors"
	"time"
)

// Snapshot is the published copy of a completed pairing.
type Snapshot struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	R           float64   `json:"r"`
	SpO2        float64   `json:"spo2"`
	HeartRate   float64   `json:"hr"`

	// HeartRates holds the per-channel heart rates keyed by channel name.
	HeartRates map[string]float64 `json:"heartRates,omitempty"`

	// Pulses is the number of aligned pulse pairs R was computed from.
	Pulses int `json:"pulses"`
}

// Validate reports whether the snapshot can be stored.
func (s Snapshot) Validate() error {
	if s.ID == "" {
		return errors.New("snapshot id cannot be empty")
	}
	if s.GeneratedAt.IsZero() {
		return errors.New("snapshot generatedAt cannot be zero")
	}
	return nil
}

// Store keeps the latest snapshot.
type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context) (Snapshot, bool, error)
}
