package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// unmatchedRoute labels requests for paths outside the API surface.
const unmatchedRoute = "/{unmatched}"

// staticRoutes are paths reported verbatim.
var staticRoutes = map[string]bool{
	"/recommendations":        true,
	"/recommendations/random": true,
	"/health":                 true,
	"/ready":                  true,
	"/metrics":                true,
}

// normalizePath maps a request path to its route pattern so metric labels and
// span names stay bounded, e.g. /recommendations/42/upvote becomes
// /recommendations/{id}/upvote.
func normalizePath(path string) string {
	if staticRoutes[path] {
		return path
	}

	rest, ok := strings.CutPrefix(path, "/recommendations/")
	if !ok || rest == "" {
		return unmatchedRoute
	}

	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		return "/recommendations/{id}"
	case len(parts) == 2 && parts[0] == "top" && parts[1] != "":
		return "/recommendations/top/{amount}"
	case len(parts) == 2 && (parts[1] == "upvote" || parts[1] == "downvote"):
		return "/recommendations/{id}/" + parts[1]
	}
	return unmatchedRoute
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	mrw.wroteHeader = true
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (mrw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return mrw.ResponseWriter
}

// HTTPMetrics is a middleware that records request duration, sizes, counts,
// and in-flight requests. Probe endpoints (/health, /ready) are excluded.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			metrics.inFlight.Inc()
			defer metrics.inFlight.Dec()

			mrw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}

			next.ServeHTTP(mrw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(mrw.statusCode),
				time.Since(start).Seconds(),
				requestSize,
				mrw.size,
			)
		})
	}
}
