package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_scan_runs_total",
			Help: "Total number of scan runs by outcome",
		},
		[]string{"result"}, // "done", "aborted", "failed"
	)

	ScanRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_scanner_scan_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_scanner_scan_last_run_timestamp",
			Help: "Unix timestamp of the last completed scan",
		},
	)

	ScanLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_scanner_scan_last_run_duration_seconds",
			Help: "Duration of the last completed scan in seconds",
		},
	)

	ScanFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_files_total",
			Help: "Total number of files handled by type and status",
		},
		[]string{"type", "status"}, // status: "ok", "error", "cached"
	)

	ScanErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_errors_total",
			Help: "Total number of per-file scan errors by kind",
		},
		[]string{"kind"},
	)

	ScanFileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_scanner_file_duration_seconds",
			Help:    "Time spent processing a single file",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"type"},
	)

	ScanWatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	ScanWatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_scanner_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	ScanWatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_scanner_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Decode metrics
var (
	DecodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_scanner_decode_duration_seconds",
			Help:    "Time spent decoding headers and pixels by format",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"format"},
	)

	DecodeBytesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_decode_bytes_read_total",
			Help: "Bytes pulled through the streaming buffer by format",
		},
		[]string{"format"},
	)

	BufferGrowthsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_scanner_buffer_growths_total",
			Help: "Total number of streaming buffer reallocations",
		},
	)

	BufferCompactionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_scanner_buffer_compactions_total",
			Help: "Total number of streaming buffer compactions",
		},
	)

	VipsFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_vips_fallbacks_total",
			Help: "Images decoded through libvips because no native decoder applied",
		},
		[]string{"status"},
	)
)

// Thumbnail metrics
var (
	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_thumbnails_total",
			Help: "Total number of thumbnails produced by output format and status",
		},
		[]string{"format", "status"},
	)

	ResampleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_scanner_resample_duration_seconds",
			Help:    "Time spent in the fixed-point resampler per thumbnail",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	ResampleFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_scanner_resample_fallbacks_total",
			Help: "Output pixels computed in floating point after fixed-point overflow",
		},
	)

	ThumbnailAliasesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_scanner_thumbnail_aliases_total",
			Help: "Thumbnails that reused the source pixels because no resize was needed",
		},
	)

	ThumbnailEncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_scanner_thumbnail_encode_duration_seconds",
			Help:    "Time spent encoding thumbnails",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"format"},
	)

	ThumbnailBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_scanner_thumbnail_bytes",
			Help:    "Encoded thumbnail size in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12),
		},
		[]string{"format"},
	)
)

// Scan cache metrics
var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_cache_lookups_total",
			Help: "Scan cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_scanner_cache_entries",
			Help: "Number of fingerprints stored in the scan cache",
		},
	)

	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_scanner_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_scanner_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Event queue metrics
var (
	EventQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_scanner_event_queue_depth",
			Help: "Events waiting to be processed by the consumer",
		},
	)

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_events_total",
			Help: "Events delivered to the consumer by kind",
		},
		[]string{"kind"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_scanner_memory_usage_ratio",
			Help: "Heap in use as a fraction of GOMEMLIMIT",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_scanner_memory_paused",
			Help: "Whether scanning is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_scanner_memory_gc_pauses_total",
			Help: "Number of times scanning paused to let the GC reclaim memory",
		},
	)

	PixelBudget = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_scanner_pixel_budget",
			Help: "Largest image, in pixels, the scanner will decode",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_scanner_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_filesystem_retry_attempts_total",
			Help: "Total number of NFS retry attempts",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_filesystem_retry_success_total",
			Help: "Total number of operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_filesystem_retry_failures_total",
			Help: "Total number of operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_scanner_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors seen",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_scanner_filesystem_retry_duration_seconds",
			Help:    "Total time spent in filesystem operations including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_scanner_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
