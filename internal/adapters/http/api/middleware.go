package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lomba/pkg/logger"
	"github.com/okian/lomba/pkg/metrics"
)

// RequestIDHeader carries the id echoed back on every instrumented response.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller-supplied request ids.
const maxRequestIDLen = 128

// errorClass is the error_type and severity recorded for a failed response.
type errorClass struct {
	kind     string
	severity string
}

var errorClasses = map[int]errorClass{
	http.StatusBadRequest:         {"client_error", "medium"},
	http.StatusNotFound:           {"not_found", "medium"},
	http.StatusMethodNotAllowed:   {"client_error", "medium"},
	http.StatusConflict:           {"conflict", "medium"},
	http.StatusTooManyRequests:    {"rate_limit", "low"},
	http.StatusServiceUnavailable: {"unavailable", "high"},
}

// classifyStatus maps a status of 400 or above to its error class.
func classifyStatus(status int) errorClass {
	if c, ok := errorClasses[status]; ok {
		return c
	}
	if status >= http.StatusInternalServerError {
		return errorClass{"server_error", "high"}
	}
	return errorClass{"client_error", "medium"}
}

// MetricsMiddleware records request count, latency and error metrics for
// endpoint, and tags the response with a request id. Server errors are logged.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, durationMs)

		if rec.status < http.StatusBadRequest {
			return
		}
		class := classifyStatus(rec.status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, class.kind)
		metrics.RecordErrorByType(class.kind, class.severity)
		if rec.status >= http.StatusInternalServerError {
			logger.Get().Named("http").Error(r.Context(), "request failed",
				logger.String("request_id", id),
				logger.String("endpoint", endpoint),
				logger.String("method", r.Method),
				logger.Int("status", rec.status),
				logger.Float64("duration_ms", durationMs))
		}
	}
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
