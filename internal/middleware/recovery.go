package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// ErrCodeInternal is the error code written for recovered panics.
const ErrCodeInternal = "internal_error"

const internalErrorBody = `{"error":{"code":"internal_error","message":"Internal server error"}}` + "\n"

// Recovery turns a handler panic into a 500 JSON error response, logs the
// stack, and counts it when metrics is non-nil. http.ErrAbortHandler is
// re-raised so net/http can abort the connection.
func Recovery(logger *slog.Logger, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				route := normalizePath(r.URL.Path)
				ctx := SetErrorCode(r.Context(), ErrCodeInternal)
				logger.ErrorContext(ctx, "panic recovered",
					slog.Any("panic", rec),
					slog.String("route", route),
					slog.String("request_id", GetRequestID(ctx)),
					slog.String("stack", string(debug.Stack())))
				if metrics != nil {
					metrics.IncPanicsRecovered(route)
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(internalErrorBody))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so the first one listed is the outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
