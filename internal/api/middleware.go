package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/atomtune/atomtune/internal/log"
)

// HeaderRequestID carries the request correlation ID.
const HeaderRequestID = "X-Request-ID"

// RequestID adds a unique ID to every request, honouring one supplied by the
// caller.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Recoverer keeps panics inside handlers from crashing the process. It logs
// the panic with the request context and answers with a 500 JSON body.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)

				logger := log.WithComponentFromContext(r.Context(), "panic-recovery")
				logger.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic_value", rec).
					Str("stack_trace", string(buf[:n])).
					Msg("panic recovered in HTTP handler")

				writeError(w, r, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestLogger emits one structured line per completed request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int(log.FieldStatus, sw.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
