package api

import (
	"net/http"
)

// RouterConfig wires handlers into the router. Metrics may be nil, in which
// case /metrics is not served.
type RouterConfig struct {
	Recommendations *RecommendationHandlers
	Health          *HealthHandlers
	Metrics         http.Handler
}

// NewRouter registers every API route on a ServeMux. Unknown paths get the
// JSON not_found envelope instead of the plain-text default.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	rh := cfg.Recommendations
	mux.HandleFunc("POST /recommendations", rh.Submit)
	mux.HandleFunc("GET /recommendations", rh.List)
	mux.HandleFunc("GET /recommendations/random", rh.Random)
	mux.HandleFunc("GET /recommendations/top/{amount}", rh.Top)
	mux.HandleFunc("GET /recommendations/{id}", rh.Get)
	mux.HandleFunc("POST /recommendations/{id}/upvote", rh.Upvote)
	mux.HandleFunc("POST /recommendations/{id}/downvote", rh.Downvote)

	if cfg.Health != nil {
		mux.HandleFunc("GET /health", cfg.Health.Health)
		mux.HandleFunc("GET /ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
	})

	return mux
}
