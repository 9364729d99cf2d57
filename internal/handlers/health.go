package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-scanner/internal/events"
	"media-scanner/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Ready        bool   `json:"ready"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	Phase        string `json:"phase"`
	LastFinished string `json:"lastFinished,omitempty"`
	LastError    string `json:"lastError,omitempty"`

	// Progress info
	FilesScanned int64   `json:"filesScanned"`
	FileErrors   int64   `json:"fileErrors"`
	FilesCached  int64   `json:"filesCached"`
	Rate         float64 `json:"rate"`
	CurrentPath  string  `json:"currentPath,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	CacheEntries int64 `json:"cacheEntries,omitempty"`
}

// HealthCheck returns the health status of the scanner
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	st := h.status.Status()

	response := HealthResponse{
		Ready:        st.Ready,
		Version:      startup.Version,
		Uptime:       time.Since(st.Started).Round(time.Second).String(),
		Phase:        string(st.Phase),
		LastError:    st.LastError,
		FilesScanned: st.Progress.Done,
		FileErrors:   st.Progress.Errors,
		FilesCached:  st.Progress.Skipped,
		Rate:         st.Progress.Rate,
		CurrentPath:  st.Progress.Path,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	switch {
	case st.Phase == events.PhaseFailed:
		response.Status = statusDegraded
	case st.Ready:
		response.Status = statusHealthy
	default:
		response.Status = statusStarting
	}

	if !st.Finished.IsZero() {
		response.LastFinished = st.Finished.Format(time.RFC3339)
	}

	if h.cache != nil {
		response.CacheEntries = h.cache.CachedEntries()
	}

	w.Header().Set("Content-Type", "application/json")

	// Return 503 only until the first scan has finished
	if !st.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 once the first scan has finished
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.status.Status().Ready {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
