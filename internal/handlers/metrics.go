package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-scanner/internal/logging"
)

// Scrape limits while a scan is running.
const (
	maxConcurrentScrapes = 2
	scrapeTimeout        = 10 * time.Second
)

// MetricsHandler returns the Prometheus metrics handler. Gather errors are
// logged and the metrics that could be collected are still served.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:            scrapeErrorLog{},
			ErrorHandling:       promhttp.ContinueOnError,
			MaxRequestsInFlight: maxConcurrentScrapes,
			Timeout:             scrapeTimeout,
		}))
}

// scrapeErrorLog routes promhttp errors to the application log.
type scrapeErrorLog struct{}

func (scrapeErrorLog) Println(v ...interface{}) {
	logging.Warn("metrics: %s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}
