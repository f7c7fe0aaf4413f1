package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bher20/billoptimizer/internal/appliance"
	"github.com/bher20/billoptimizer/internal/auth"
	"github.com/bher20/billoptimizer/internal/metrics"
	"github.com/bher20/billoptimizer/internal/planner"
	"github.com/bher20/billoptimizer/internal/predict"
	"github.com/bher20/billoptimizer/internal/tariff"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

type errorResponse struct {
	Error   string   `json:"error"`
	Status  string   `json:"status"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tariff.ErrInvalidInput),
		errors.Is(err, tariff.ErrInvalidCategory),
		errors.Is(err, tariff.ErrInvalidSchedule),
		errors.Is(err, appliance.ErrUnknownAppliance),
		errors.Is(err, planner.ErrUnknownMeasure):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, tariff.ErrSlabNotFound):
		return http.StatusNotFound
	case errors.Is(err, tariff.ErrNoStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), Status: "error"}
	if status == http.StatusInternalServerError {
		s.log.Error("api: request failed", zap.String("path", r.URL.Path), zap.Error(err))
		resp.Error = "internal server error"
	}
	var ve *predict.ValidationError
	if errors.As(err, &ve) {
		resp.Details = ve.Details
	}
	writeJSON(w, status, resp)
}

// readJSON reads a JSON body into dst.
func readJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", tariff.ErrInvalidInput, err)
	}
	return nil
}

// decodeJSON reads a JSON body into dst and validates its struct tags.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := readJSON(r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return fmt.Errorf("%w: %v", tariff.ErrInvalidInput, err)
	}
	return nil
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", tariff.ErrInvalidInput, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errInvalidQuery(name)
	}
	return v, nil
}

func errInvalidQuery(name string) error {
	return fmt.Errorf("%w: %s must be a number", tariff.ErrInvalidInput, name)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count, duration and error responses for route.
func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		metrics.RequestsTotal.WithLabelValues(route).Inc()
		defer func() {
			metrics.RequestDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
			if rec.status >= 400 {
				metrics.RequestErrorsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			}
		}()

		next.ServeHTTP(rec, r)
	})
}
