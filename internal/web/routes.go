package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Snapshot reads
	api.HandleFunc("/status", h.GetStatus).Methods("GET")
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")
	api.HandleFunc("/dlq", h.ListDLQ).Methods("GET")
	api.HandleFunc("/refresh", h.Refresh).Methods("POST")

	// Actions
	api.HandleFunc("/dlq/{id}/retry", h.RetryJob).Methods("POST")
	api.HandleFunc("/jobs/{id}", h.DeleteJob).Methods("DELETE")
	api.HandleFunc("/jobs/{id}/log", h.ViewLog).Methods("POST")

	// Log viewer
	api.HandleFunc("/log", h.GetLog).Methods("GET")
	api.HandleFunc("/log", h.CloseLog).Methods("DELETE")

	api.HandleFunc("/notifications", h.DrainNotifications).Methods("GET")
	api.HandleFunc("/history", h.GetHistory).Methods("GET")

	r.Use(requestLogger(h.logger))
}

// NewRouter returns a router with every route registered
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	SetupRoutes(r, h)
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		})
	}
}
