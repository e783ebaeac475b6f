// Package main implements the submission path of the oximeter service.
//
// This file contains the Service type which ties a channel submission to
// the shared reading state:
//
//	decode → filter → extract → measure → pair → (ratio) → publish
//
// The pipeline runs outside the Oximeter lock. When a submission completes a
// pair the new reading is published to the snapshot store after the lock is
// released; a publish failure is logged and counted but never fails the
// submission. Publications are serialized and ordered by pairing sequence,
// so a reading that loses the race to a newer one is dropped instead of
// overwriting it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/HatiCode/pulseox/cmd/oximeter/metrics"
	"github.com/HatiCode/pulseox/pkg/oximeter"
	"github.com/HatiCode/pulseox/pkg/ppg"
	"github.com/HatiCode/pulseox/pkg/storage"
)

// ReadingService is the gRPC health service name that turns SERVING once
// the first ratio has been computed.
const ReadingService = "pulseox.Oximeter"

// healthReporter is implemented by *health.Server.
type healthReporter interface {
	SetServingStatus(service string, status grpc_health_v1.HealthCheckResponse_ServingStatus)
}

// Service runs submissions through the pipeline and into the Oximeter.
type Service struct {
	pipeline       *ppg.Pipeline
	oximeter       *oximeter.Oximeter
	store          storage.Store
	metrics        *metrics.Metrics
	health         healthReporter
	publishTimeout time.Duration
	logger         *slog.Logger

	publishMu sync.Mutex
	published uint64 // highest pairing sequence handed to the store
}

// NewService creates a Service. metrics and health may be nil.
func NewService(
	pipeline *ppg.Pipeline,
	ox *oximeter.Oximeter,
	store storage.Store,
	m *metrics.Metrics,
	health healthReporter,
	publishTimeout time.Duration,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	if health != nil {
		health.SetServingStatus(ReadingService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	return &Service{
		pipeline:       pipeline,
		oximeter:       ox,
		store:          store,
		metrics:        m,
		health:         health,
		publishTimeout: publishTimeout,
		logger:         logger,
	}
}

// Submit analyzes one channel payload and commits the measurement.
func (s *Service) Submit(ctx context.Context, ch ppg.Channel, payload string) (oximeter.Outcome, error) {
	start := time.Now()
	analysis, err := s.pipeline.Analyze(ch, payload)
	if s.metrics != nil {
		s.metrics.RecordPipeline(ch.String(), time.Since(start).Seconds())
	}
	if err != nil {
		s.reject(ch, "pipeline", err)
		return oximeter.Outcome{}, err
	}

	out, err := s.oximeter.Submit(analysis.Measurement)
	if err != nil {
		s.reject(ch, "pairing", err)
		return oximeter.Outcome{}, err
	}

	m := analysis.Measurement
	s.logger.Debug("submission processed",
		"channel", ch,
		"samples", analysis.Samples,
		"peaks", len(analysis.Extrema.Peaks),
		"troughs", len(analysis.Extrema.Troughs),
		"pulses", m.Pulses(),
		"heart_rate", m.HeartRate,
		"state", out.State,
	)
	if s.metrics != nil {
		s.metrics.RecordSubmission(ch.String(), "processed")
		s.metrics.SetHeartRate(ch.String(), m.HeartRate)
		s.metrics.SetPulses(ch.String(), m.Pulses())
	}

	if out.Paired {
		s.paired(ctx, out)
	}

	return out, nil
}

// Retrieve returns the current reading.
func (s *Service) Retrieve() oximeter.Result {
	return s.oximeter.Retrieve()
}

func (s *Service) reject(ch ppg.Channel, component string, err error) {
	s.logger.Info("submission rejected", "channel", ch, "component", component, "error", err)
	if s.metrics != nil {
		s.metrics.RecordSubmission(ch.String(), "rejected")
		s.metrics.RecordError(component, errorReason(err))
	}
}

func (s *Service) paired(ctx context.Context, out oximeter.Outcome) {
	if s.metrics != nil {
		s.metrics.RecordPairing()
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if out.Seq <= s.published {
		s.logger.Debug("dropping superseded reading", "seq", out.Seq, "published", s.published)
		return
	}
	s.published = out.Seq

	spo2 := ppg.SpO2(out.R)

	s.logger.Info("pairing completed", "seq", out.Seq, "r", out.R, "spo2", spo2, "pulses", out.Pulses)
	if s.metrics != nil {
		s.metrics.SetReading(out.R, spo2)
	}
	if s.health != nil {
		s.health.SetServingStatus(ReadingService, grpc_health_v1.HealthCheckResponse_SERVING)
	}

	snapshot := storage.Snapshot{
		ID:          uuid.NewString(),
		GeneratedAt: out.PairedAt.UTC(),
		R:           out.R,
		SpO2:        spo2,
		HeartRate:   out.HeartRates.Mean(),
		HeartRates: map[string]float64{
			ppg.Red.String():      out.HeartRates.Red,
			ppg.Infrared.String(): out.HeartRates.Infrared,
		},
		Pulses: out.Pulses,
	}

	if err := s.publish(ctx, snapshot); err != nil {
		s.logger.Error("failed to publish snapshot", "id", snapshot.ID, "error", err)
		if s.metrics != nil {
			s.metrics.RecordError("store", "publish_failed")
		}
	}
}

// publish stores the snapshot. It is bounded by publishTimeout and is not
// cancelled when the request that triggered it finishes.
func (s *Service) publish(ctx context.Context, snapshot storage.Snapshot) error {
	if s.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	start := time.Now()
	if err := s.store.Put(ctx, snapshot); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordPublish(time.Since(start).Seconds())
	}
	return nil
}

// errorReason labels an error for the errors_total metric.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ppg.ErrParse):
		return "parse"
	case errors.Is(err, ppg.ErrTooManySamples):
		return "too_many_samples"
	case errors.Is(err, ppg.ErrTraceTooShort):
		return "trace_too_short"
	case errors.Is(err, ppg.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ppg.ErrArithmetic):
		return "arithmetic"
	case errors.Is(err, ppg.ErrNoValidRatio):
		return "no_valid_ratio"
	default:
		return "other"
	}
}
