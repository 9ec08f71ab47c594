// Package middleware contains HTTP middleware shared by every route.
package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/pessoa-api/internal/logctx"
	"github.com/aanand-mishra/pessoa-api/internal/utils/response"
)

// HeaderRequestID carries the correlation id of every response.
const HeaderRequestID = "X-Request-Id"

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// RequestLogger wraps next so that each request
//   - gets a fresh correlation id, echoed in the X-Request-Id header,
//   - runs with a log context holding request_id, method, path and client_ip,
//   - is logged when it starts and, whatever the outcome, when it completes,
//   - is answered with a 500 error body if a handler panics.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()

			ctx := logctx.With(r.Context(),
				slog.String(logctx.KeyRequestID, requestID),
				slog.String(logctx.KeyMethod, r.Method),
				slog.String(logctx.KeyPath, r.URL.Path),
				slog.String(logctx.KeyClientIP, ClientIP(r)),
			)
			r = r.WithContext(ctx)

			w.Header().Set(HeaderRequestID, requestID)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			log.InfoContext(ctx, "request started")

			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					err := fmt.Errorf("panic: %v", p)
					if !rec.wroteHeader {
						response.WriteError(rec, r, err)
					} else {
						log.ErrorContext(ctx, "panic after response was written", slog.String("error", err.Error()))
					}
				}

				log.InfoContext(ctx, "request completed",
					slog.Int64("duration_ms", time.Since(start).Milliseconds()),
					slog.Int("status", rec.status))
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// ClientIP resolves the caller's address: the first X-Forwarded-For
// entry, then X-Real-IP, then the connection's remote host.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
