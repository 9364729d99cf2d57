package handlers

import (
	"net/http"

	"media-scanner/internal/events"
	"media-scanner/internal/middleware"

	"github.com/gorilla/mux"
)

// StatusSource reports the state of the running scan.
type StatusSource interface {
	Status() events.Status
}

// CacheCounter reports the number of scan cache entries. It may be nil.
type CacheCounter interface {
	CachedEntries() int64
}

type Handlers struct {
	status StatusSource
	cache  CacheCounter
}

func New(status StatusSource, cache CacheCounter) *Handlers {
	return &Handlers{status: status, cache: cache}
}

// Router registers the health, version and metrics routes.
func (h *Handlers) Router(logHealthChecks bool) *mux.Router {
	r := mux.NewRouter()

	logCfg := middleware.DefaultLoggingConfig()
	logCfg.LogHealthChecks = logHealthChecks
	r.Use(middleware.Logger(logCfg))

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet).Name("healthz")
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("livez")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet).Name("readyz")
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")
	r.Handle("/metrics", h.MetricsHandler()).Name("metrics")
	return r
}
