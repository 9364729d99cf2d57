package handlers

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"media-scanner/internal/metrics"
)

func TestMetricsHandlerReturnsPrometheusFormat(t *testing.T) {
	t.Parallel()

	h := &Handlers{}
	handler := h.MetricsHandler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("Expected Content-Type to contain 'text/plain', got %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus metrics format with HELP/TYPE comments")
	}
	for _, metric := range []string{"go_goroutines", "process_"} {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metrics to contain %q", metric)
		}
	}
}

func TestMetricsHandlerExposesScannerMetrics(t *testing.T) {
	metrics.EventsTotal.WithLabelValues("result").Inc()

	h := &Handlers{}
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	h.MetricsHandler().ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), "media_scanner_events_total") {
		t.Error("Expected scanner metrics to be exposed")
	}
}

func TestScrapeErrorLog(t *testing.T) {
	var buf bytes.Buffer
	prev, flags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(prev)
		log.SetFlags(flags)
	}()

	scrapeErrorLog{}.Println("error gathering metrics:", "collector failed")

	if got := buf.String(); !strings.Contains(got, "[WARN] metrics: error gathering metrics: collector failed") {
		t.Errorf("unexpected log output %q", got)
	}
}
