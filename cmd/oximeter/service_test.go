package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/HatiCode/pulseox/cmd/oximeter/metrics"
	"github.com/HatiCode/pulseox/pkg/oximeter"
	"github.com/HatiCode/pulseox/pkg/ppg"
	"github.com/HatiCode/pulseox/pkg/storage"
)

// Amplitudes whose per-pulse AC/DC ratios give R = 0.4.
const (
	redAmplitude      = 13.2 / 54
	infraredAmplitude = 0.5
)

type recordingHealth struct {
	mu       sync.Mutex
	statuses map[string]grpc_health_v1.HealthCheckResponse_ServingStatus
}

func (h *recordingHealth) SetServingStatus(service string, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.statuses == nil {
		h.statuses = make(map[string]grpc_health_v1.HealthCheckResponse_ServingStatus)
	}
	h.statuses[service] = status
}

func (h *recordingHealth) status(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statuses[service]
}

type failingStore struct{}

func (failingStore) Put(context.Context, storage.Snapshot) error {
	return errors.New("connection refused")
}

func (failingStore) GetLatest(context.Context) (storage.Snapshot, bool, error) {
	return storage.Snapshot{}, false, errors.New("connection refused")
}

// pulseText renders 2.0 + amp·sin(2π·1.25·t) sampled every 4ms.
func pulseText(amp float64) string {
	parts := make([]string, 2000)
	for i := range parts {
		v := 2.0 + amp*math.Sin(2*math.Pi*1.25*float64(i)*0.004)
		parts[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return strings.Join(parts, ",")
}

func newTestService(t *testing.T, store storage.Store) (*Service, *metrics.Metrics, *recordingHealth) {
	t.Helper()

	pipeline, err := ppg.NewPipeline(ppg.DefaultConfig(), 10000)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	m := metrics.New(prometheus.NewRegistry())
	h := &recordingHealth{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(pipeline, oximeter.New(ppg.RatioPolicy{}), store, m, h, time.Second, logger)
	return svc, m, h
}

func TestService_PairingPublishesSnapshot(t *testing.T) {
	store := storage.NewMemoryStore(0)
	svc, m, h := newTestService(t, store)
	ctx := context.Background()

	if got := h.status(ReadingService); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("initial health = %v, want NOT_SERVING", got)
	}

	out, err := svc.Submit(ctx, ppg.Red, pulseText(redAmplitude))
	if err != nil {
		t.Fatalf("Submit(red) error = %v", err)
	}
	if out.Paired || out.State != oximeter.WaitingForSecond {
		t.Errorf("Submit(red) = %+v, want unpaired waiting_for_second", out)
	}
	if _, found, _ := store.GetLatest(ctx); found {
		t.Error("no snapshot should be published before the pair completes")
	}

	out, err = svc.Submit(ctx, ppg.Infrared, pulseText(infraredAmplitude))
	if err != nil {
		t.Fatalf("Submit(infrared) error = %v", err)
	}
	if !out.Paired || out.State != oximeter.WaitingForFirst {
		t.Errorf("Submit(infrared) = %+v, want paired waiting_for_first", out)
	}

	snap, found, err := store.GetLatest(ctx)
	if err != nil || !found {
		t.Fatalf("GetLatest() = found %v, err %v", found, err)
	}
	if _, err := uuid.Parse(snap.ID); err != nil {
		t.Errorf("snapshot ID %q is not a UUID: %v", snap.ID, err)
	}
	if math.Abs(snap.R-0.4) > 1e-4 {
		t.Errorf("snapshot R = %v, want 0.4", snap.R)
	}
	if math.Abs(snap.SpO2-99.4928) > 1e-3 {
		t.Errorf("snapshot SpO2 = %v, want 99.4928", snap.SpO2)
	}
	if math.Abs(snap.HeartRate-75) > 1e-6 {
		t.Errorf("snapshot HR = %v, want 75", snap.HeartRate)
	}
	if snap.Pulses != 5 {
		t.Errorf("snapshot pulses = %d, want 5", snap.Pulses)
	}
	if snap.HeartRates["red"] == 0 || snap.HeartRates["infrared"] == 0 {
		t.Errorf("snapshot heart rates = %v, want both channels", snap.HeartRates)
	}

	if got := h.status(ReadingService); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("health after pairing = %v, want SERVING", got)
	}
	if got := testutil.ToFloat64(m.PairingsTotal); got != 1 {
		t.Errorf("pairings = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("red", "processed")); got != 1 {
		t.Errorf("red processed = %v, want 1", got)
	}

	res := svc.Retrieve()
	if !res.Ready || math.Abs(res.SpO2-snap.SpO2) > 1e-9 {
		t.Errorf("Retrieve() = %+v, want ready reading matching the snapshot", res)
	}
}

func TestService_RejectedSubmissionLeavesStateUnchanged(t *testing.T) {
	svc, m, _ := newTestService(t, storage.NewMemoryStore(0))
	ctx := context.Background()

	if _, err := svc.Submit(ctx, ppg.Red, pulseText(redAmplitude)); err != nil {
		t.Fatalf("Submit(red) error = %v", err)
	}

	_, err := svc.Submit(ctx, ppg.Infrared, "1.0,abc,2.0")
	if !errors.Is(err, ppg.ErrParse) {
		t.Fatalf("Submit() error = %v, want ErrParse", err)
	}
	_, err = svc.Submit(ctx, ppg.Infrared, "1.0,2.0")
	if !errors.Is(err, ppg.ErrTraceTooShort) {
		t.Fatalf("Submit() error = %v, want ErrTraceTooShort", err)
	}

	if got := testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("infrared", "rejected")); got != 2 {
		t.Errorf("infrared rejected = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("pipeline", "parse")); got != 1 {
		t.Errorf("parse errors = %v, want 1", got)
	}

	// The pending red measurement survived the failures.
	out, err := svc.Submit(ctx, ppg.Infrared, pulseText(infraredAmplitude))
	if err != nil {
		t.Fatalf("Submit(infrared) error = %v", err)
	}
	if !out.Paired {
		t.Error("infrared submission should complete the pending pair")
	}
}

func TestService_TooManySamples(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	payload := strings.TrimSuffix(strings.Repeat("1.0,", 10001), ",")
	if _, err := svc.Submit(context.Background(), ppg.Red, payload); !errors.Is(err, ppg.ErrTooManySamples) {
		t.Errorf("Submit() error = %v, want ErrTooManySamples", err)
	}
}

func TestService_PublishFailureDoesNotFailSubmission(t *testing.T) {
	svc, m, _ := newTestService(t, failingStore{})
	ctx := context.Background()

	if _, err := svc.Submit(ctx, ppg.Red, pulseText(redAmplitude)); err != nil {
		t.Fatalf("Submit(red) error = %v", err)
	}
	out, err := svc.Submit(ctx, ppg.Infrared, pulseText(infraredAmplitude))
	if err != nil {
		t.Fatalf("Submit(infrared) error = %v, publish failures must not fail submissions", err)
	}
	if !out.Paired {
		t.Error("submission should still complete the pair")
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("store", "publish_failed")); got != 1 {
		t.Errorf("publish errors = %v, want 1", got)
	}
}

func TestService_PublishOutlivesRequestContext(t *testing.T) {
	store := storage.NewMemoryStore(0)
	svc, _, _ := newTestService(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := svc.Submit(ctx, ppg.Red, pulseText(redAmplitude)); err != nil {
		t.Fatalf("Submit(red) error = %v", err)
	}
	cancel()

	if _, err := svc.Submit(ctx, ppg.Infrared, pulseText(infraredAmplitude)); err != nil {
		t.Fatalf("Submit(infrared) error = %v", err)
	}
	if _, found, _ := store.GetLatest(context.Background()); !found {
		t.Error("snapshot should be published even when the request context is done")
	}
}

func TestErrorReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", ppg.ErrParse), "parse"},
		{ppg.ErrTooManySamples, "too_many_samples"},
		{ppg.ErrTraceTooShort, "trace_too_short"},
		{ppg.ErrInsufficientData, "insufficient_data"},
		{fmt.Errorf("ratio: %w", ppg.ErrArithmetic), "arithmetic"},
		{fmt.Errorf("ratio: %w", ppg.ErrNoValidRatio), "no_valid_ratio"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		if got := errorReason(tt.err); got != tt.want {
			t.Errorf("errorReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// gatedStore blocks the first Put until release is closed.
type gatedStore struct {
	*storage.MemoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryStore: storage.NewMemoryStore(0),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) Put(ctx context.Context, snapshot storage.Snapshot) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.MemoryStore.Put(ctx, snapshot)
}

func TestService_DropsSupersededReading(t *testing.T) {
	store := storage.NewMemoryStore(0)
	svc, m, _ := newTestService(t, store)
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	newer := oximeter.Outcome{Paired: true, R: 0.5, Pulses: 4, Seq: 2, PairedAt: at.Add(time.Second)}
	older := oximeter.Outcome{Paired: true, R: 0.4, Pulses: 4, Seq: 1, PairedAt: at}

	svc.paired(ctx, newer)
	svc.paired(ctx, older)

	snap, found, err := store.GetLatest(ctx)
	if err != nil || !found {
		t.Fatalf("GetLatest() = found %v, err %v", found, err)
	}
	if snap.R != 0.5 || !snap.GeneratedAt.Equal(newer.PairedAt) {
		t.Errorf("snapshot R=%v at %v, want the newer reading R=0.5 at %v", snap.R, snap.GeneratedAt, newer.PairedAt)
	}
	if got := testutil.ToFloat64(m.Ratio); got != 0.5 {
		t.Errorf("ratio gauge = %v, want 0.5", got)
	}
	if got := testutil.ToFloat64(m.PairingsTotal); got != 2 {
		t.Errorf("pairings = %v, want 2", got)
	}
}

func TestService_ConcurrentPairingsPublishLatest(t *testing.T) {
	store := newGatedStore()
	svc, _, _ := newTestService(t, store)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		if _, err := svc.Submit(ctx, ppg.Red, pulseText(redAmplitude)); err != nil {
			first <- err
			return
		}
		_, err := svc.Submit(ctx, ppg.Infrared, pulseText(infraredAmplitude))
		first <- err
	}()

	select {
	case <-store.entered:
	case err := <-first:
		t.Fatalf("first pairing finished before publishing: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("first pairing never reached the store")
	}

	// The first snapshot is stuck in Put; complete a second pairing.
	second := make(chan error, 1)
	go func() {
		if _, err := svc.Submit(ctx, ppg.Red, pulseText(1.25*redAmplitude)); err != nil {
			second <- err
			return
		}
		_, err := svc.Submit(ctx, ppg.Infrared, pulseText(infraredAmplitude))
		second <- err
	}()

	deadline := time.Now().Add(10 * time.Second)
	for svc.oximeter.Retrieve().R < 0.45 {
		if time.Now().After(deadline) {
			t.Fatal("second pairing never committed")
		}
		time.Sleep(time.Millisecond)
	}

	close(store.release)
	for _, ch := range []chan error{first, second} {
		if err := <-ch; err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	want := svc.Retrieve().R
	snap, found, err := store.GetLatest(ctx)
	if err != nil || !found {
		t.Fatalf("GetLatest() = found %v, err %v", found, err)
	}
	if snap.R != want {
		t.Errorf("published R = %v, want latest R %v", snap.R, want)
	}
}
