package api

import (
	"github.com/gorilla/mux"

	"github.com/pagepilot/pagepilot/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes. Resource-creating endpoints go
// through the rate limiter; read-only and streaming endpoints do not.
func (h *Handler) SetupRoutes(limiter *ratelimit.Limiter, requestsPerHour int) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/v1").Subrouter()

	api.HandleFunc("/health", h.Health).Methods("GET")

	limited := api.PathPrefix("").Subrouter()
	limited.Use(RateLimitMiddleware(limiter, requestsPerHour))

	// Session lifecycle and automation (rate limited).
	limited.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	limited.HandleFunc("/tasks", h.RunTask).Methods("POST")
	limited.HandleFunc("/extract/product", h.ExtractProduct).Methods("POST")
	limited.HandleFunc("/extract/text", h.ExtractText).Methods("POST")

	// Session inspection and actions.
	api.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	api.HandleFunc("/sessions", h.CleanupSessions).Methods("DELETE")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/navigate", h.NavigateSession).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/actions", h.ExecuteAction).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/extract", h.ExtractSelectors).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/screenshot", h.Screenshot).Methods("GET")
	api.HandleFunc("/sessions/{id}/live", h.Live).Methods("GET")

	r.Use(corsMiddleware)

	return r
}
