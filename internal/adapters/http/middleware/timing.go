package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskroom/internal/observability"
)

// DefaultSlowRequest is the threshold above which a request logs at WARN.
const DefaultSlowRequest = 200 * time.Millisecond

// RequestIDHeader echoes the request id back to the client.
const RequestIDHeader = "X-Request-ID"

const requestIDContextKey contextKey = "request_id"

// unmatchedRoute labels requests no route pattern claimed.
const unmatchedRoute = "unmatched"

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
// PRE: code is a valid HTTP status code
// POST: status stored, header written to underlying ResponseWriter
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// statusWriterPool reduces allocations on the hot path.
var statusWriterPool = sync.Pool{
	New: func() any {
		return &statusWriter{}
	},
}

// Timing returns middleware that tags each request with an id, logs its
// duration and records it in metrics under the matched route pattern.
// It must wrap the ServeMux directly so the pattern is visible afterwards.
// Requests to /static/ are excluded.
// Normal requests log at DEBUG; slow requests log at WARN.
func Timing(metrics *observability.Metrics, slow time.Duration) func(http.Handler) http.Handler {
	if slow <= 0 {
		slow = DefaultSlowRequest
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isStatic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)
			r = r.WithContext(context.WithValue(r.Context(), requestIDContextKey, reqID))

			sw := statusWriterPool.Get().(*statusWriter)
			sw.ResponseWriter = w
			sw.status = http.StatusOK
			defer func() {
				d := time.Since(start)
				route := r.Pattern
				if route == "" {
					route = unmatchedRoute
				}
				attrs := []any{
					"request_id", reqID,
					"method", r.Method,
					"path", r.URL.Path,
					"route", route,
					"status", sw.status,
					"duration_ms", float64(d.Microseconds()) / 1000.0,
				}
				if d >= slow {
					slog.Warn("slow_request", attrs...)
				} else {
					slog.Debug("request", attrs...)
				}
				metrics.ObserveHTTP(r.Method, route, sw.status, d)

				sw.ResponseWriter = nil
				statusWriterPool.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

// RequestIDFromContext returns the id Timing assigned, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
