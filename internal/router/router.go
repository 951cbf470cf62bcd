package router

import (
	"net/http"

	"github.com/finopslabs/apinbox/internal/handlers"
	"github.com/finopslabs/apinbox/internal/middleware"
	"github.com/finopslabs/apinbox/internal/repository"
	"github.com/finopslabs/apinbox/internal/utils"

	"github.com/gorilla/mux"
)

func NewRouter(store *repository.Store, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	metricsHandler := handlers.NewMetricsHandler(store, logger)

	// Routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Reporting endpoints
	api.HandleFunc("/metrics/overview", metricsHandler.Overview).Methods(http.MethodGet)
	api.HandleFunc("/metrics/status-breakdown", metricsHandler.StatusBreakdown).Methods(http.MethodGet)
	api.HandleFunc("/metrics/ageing", metricsHandler.Ageing).Methods(http.MethodGet)
	api.HandleFunc("/worklist", metricsHandler.Worklist).Methods(http.MethodGet)

	return r
}
