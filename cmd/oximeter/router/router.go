// Package router configures the oximeter's HTTP API.
//
// Routes configured:
//   - POST /send_data - Submit one channel's raw samples
//   - GET /retrieve_data - Current SpO2 and heart rate
//   - GET /reading/latest - Last published snapshot from the store
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Submissions are JSON objects {"indicator": "red"|"ir"|"infrared",
// "dataString": "v1,v2,..."}. Pipeline errors map to 400 when the payload
// itself is malformed and to 422 when it is well formed but cannot produce
// a measurement.
package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tidwall/gjson"

	"github.com/HatiCode/pulseox/pkg/httpx"
	"github.com/HatiCode/pulseox/pkg/oximeter"
	"github.com/HatiCode/pulseox/pkg/ppg"
	"github.com/HatiCode/pulseox/pkg/storage"
)

// PendingHeader is set on /retrieve_data responses until the first pairing.
const PendingHeader = "X-Oximeter-Pending"

// Service is the reading state the routes operate on.
type Service interface {
	Submit(ctx context.Context, ch ppg.Channel, payload string) (oximeter.Outcome, error)
	Retrieve() oximeter.Result
}

// Options holds the optional pieces of the route set.
type Options struct {
	// Metrics serves /metrics. Defaults to promhttp.Handler().
	Metrics http.Handler
	// Health is consulted by /healthz. Nil always reports healthy.
	Health func() error
}

// SubmitResponse is the body of a successful submission.
type SubmitResponse struct {
	Status  string `json:"status"`
	Channel string `json:"channel"`
	State   string `json:"state"`
	Paired  bool   `json:"paired"`
}

// ReadingResponse is the body of /retrieve_data.
type ReadingResponse struct {
	SpO2 float64 `json:"spo2"`
	HR   float64 `json:"hr"`
}

// SetupRoutes configures HTTP endpoints for the oximeter.
func SetupRoutes(svc Service, store storage.Store, opts Options, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}

	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandler(opts.Health))
	mux.Handle("/metrics", opts.Metrics)

	mux.HandleFunc("/send_data", httpx.AllowMethods(handleSubmit(svc, logger), http.MethodPost))
	mux.HandleFunc("/retrieve_data", httpx.AllowMethods(handleRetrieve(svc, logger), http.MethodGet))
	mux.HandleFunc("/reading/latest", httpx.AllowMethods(handleLatest(store, logger), http.MethodGet))

	return mux
}

// handleSubmit returns a handler for POST /send_data.
func handleSubmit(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				httpx.WriteErrorMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		ch, payload, err := parseSubmission(body)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		out, err := svc.Submit(r.Context(), ch, payload)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				logger.Error("submission failed", "channel", ch, "error", err)
				httpx.WriteErrorMessage(w, status, "internal server error")
				return
			}
			logger.Debug("submission rejected", "channel", ch, "status", status, "error", err)
			httpx.WriteError(w, status, err)
			return
		}

		resp := SubmitResponse{
			Status:  "processed",
			Channel: out.Channel.String(),
			State:   out.State.String(),
			Paired:  out.Paired,
		}
		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}

// parseSubmission validates the request body and extracts its fields.
func parseSubmission(body []byte) (ppg.Channel, string, error) {
	if !gjson.ValidBytes(body) {
		return "", "", errors.New("request body must be valid JSON")
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return "", "", errors.New("request body must be a JSON object")
	}

	indicator := root.Get("indicator")
	if indicator.Type != gjson.String {
		return "", "", errors.New("indicator is required and must be a string")
	}
	data := root.Get("dataString")
	if data.Type != gjson.String {
		return "", "", errors.New("dataString is required and must be a string")
	}

	ch, err := ppg.ParseChannel(indicator.String())
	if err != nil {
		return "", "", err
	}
	return ch, data.String(), nil
}

// statusFor maps submission errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ppg.ErrParse), errors.Is(err, ppg.ErrTooManySamples):
		return http.StatusBadRequest
	case errors.Is(err, ppg.ErrTraceTooShort),
		errors.Is(err, ppg.ErrInsufficientData),
		errors.Is(err, ppg.ErrArithmetic),
		errors.Is(err, ppg.ErrNoValidRatio):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleRetrieve returns a handler for GET /retrieve_data.
func handleRetrieve(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := svc.Retrieve()
		if !res.Ready {
			w.Header().Set(PendingHeader, "true")
		}

		if err := httpx.WriteJSON(w, http.StatusOK, ReadingResponse{SpO2: res.SpO2, HR: res.HeartRate}); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}

// handleLatest returns a handler for GET /reading/latest.
func handleLatest(store storage.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx)
		if err != nil {
			logger.Error("failed to get snapshot", "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, "no reading published yet")
			return
		}

		if err := httpx.WriteJSON(w, http.StatusOK, snapshot); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}
