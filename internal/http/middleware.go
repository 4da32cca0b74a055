package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/passguard/internal/observability/logger"
)

// WithRequestID assigns each request an ID (honoring an inbound
// X-Request-ID) and injects a scoped logger into the context.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)

		l := logger.From(r.Context()).With(zap.String("request_id", rid))
		next.ServeHTTP(w, r.WithContext(logger.ToContext(r.Context(), l)))
	})
}

// WithRecover turns panics into 500s instead of dropping the connection.
func WithRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.From(r.Context()).Error("panic", zap.Any("recover", rec))
				WriteError(w, http.StatusInternalServerError, "internal_error", "panic recovered")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// WithLogging logs one line per request and feeds the HTTP metrics.
func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		observeInflight(r.Method, r.URL.Path, 1)
		next.ServeHTTP(rec, r)
		observeInflight(r.Method, r.URL.Path, -1)
		dur := time.Since(start)

		observeRequest(r.Method, r.URL.Path, rec.status, dur)
		logger.From(r.Context()).Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Int64("duration_ms", dur.Milliseconds()),
		)
	})
}

// WithAdminKey guards an endpoint with the X-Admin-API-Key header.
// An empty configured key leaves the endpoint open (dev setups).
func WithAdminKey(key string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key != "" && r.Header.Get("X-Admin-API-Key") != key {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid admin API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
