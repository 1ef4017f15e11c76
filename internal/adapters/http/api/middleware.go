package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/brewrank/internal/adapters/auth"
	"github.com/okian/brewrank/pkg/logger"
	"github.com/okian/brewrank/pkg/metrics"
)

// errorKindHeader carries the error code from writeError to the metrics
// middleware. It is also visible to clients.
const errorKindHeader = "X-Error-Code"

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

		if wrapped.statusCode >= http.StatusBadRequest {
			kind := wrapped.Header().Get(errorKindHeader)
			if kind == "" {
				kind = getErrorType(wrapped.statusCode)
			}
			metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
			metrics.RecordErrorByKind(kind)
		}
	}
}

// getErrorType returns a standardized error type for responses that did
// not go through writeError.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "server_error"
	case statusCode == http.StatusNotFound:
		return "not_found"
	case statusCode == http.StatusMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "client_error"
	}
}

// AccessLog logs one line per request.
func AccessLog(log logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		fields := []logger.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", wrapped.statusCode),
			logger.Duration("duration", time.Since(start)),
		}
		if wrapped.statusCode >= http.StatusInternalServerError {
			log.Error(r.Context(), "request failed", fields...)
			return
		}
		log.Debug(r.Context(), "request served", fields...)
	}
}

// Authenticate requires a valid bearer token and stores its owner in the
// request context.
func Authenticate(tokens TokenValidator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="brewrank"`)
			writeError(w, WrapKind("authenticate", KindUnauthenticated, err))
			return
		}
		owner, err := tokens.Validate(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="brewrank", error="invalid_token"`)
			writeError(w, WrapKind("authenticate", KindUnauthenticated, err))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithOwner(r.Context(), owner)))
	}
}

// owner returns the authenticated owner of r.
func owner(r *http.Request) (string, error) {
	o, ok := auth.OwnerFrom(r.Context())
	if !ok {
		return "", NewKind("owner", KindUnauthenticated, "no authenticated owner")
	}
	return o, nil
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
