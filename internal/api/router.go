package api

import (
	"github.com/gorilla/mux"
)

func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// Apply middleware
	r.Use(CORSMiddleware)
	r.Use(LoggingMiddleware)

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(JSONMiddleware)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Run routes
	api.HandleFunc("/runs", h.StartRun).Methods("POST")
	api.HandleFunc("/runs/{runId}", h.GetRunStatus).Methods("GET")
	api.HandleFunc("/runs/{runId}/captcha", h.SubmitCaptcha).Methods("POST")
	api.HandleFunc("/runs/{runId}", h.CancelRun).Methods("DELETE")

	return r
}
