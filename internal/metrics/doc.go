// Package metrics provides Prometheus instrumentation for the media scanner.
//
// All metrics are registered with promauto at package init and are prefixed
// with "media_scanner_". The HTTP handlers package exposes them on /metrics.
//
// # Metric Categories
//
// ## Scan Metrics
//
// Track scan runs and per-file outcomes:
//   - ScanRunsTotal: Counter of runs by result (done/aborted/failed)
//   - ScanRunning: Gauge indicating whether a scan is active
//   - ScanFilesTotal: Counter of files by type and status (ok/error/cached)
//   - ScanErrorsTotal: Counter of file errors by kind
//   - ScanFileDuration: Histogram of per-file processing time
//   - ScanWatcherEventsTotal, ScanWatcherErrors, ScanWatchedDirectories: watch mode
//
// ## Decode Metrics
//
//   - DecodeDuration: Histogram of decode time by format
//   - DecodeBytesRead: Counter of bytes pulled through the streaming buffer
//   - BufferGrowthsTotal, BufferCompactionsTotal: buffer layout changes
//   - VipsFallbacksTotal: images handed to libvips
//
// ## Thumbnail Metrics
//
//   - ThumbnailsTotal: Counter by output format and status
//   - ResampleDuration: Histogram of resampler time per thumbnail
//   - ResampleFallbacksTotal: pixels computed in floating point
//   - ThumbnailAliasesTotal: thumbnails that reused the source pixels
//   - ThumbnailEncodeDuration, ThumbnailBytes: encoder cost and output size
//
// ## Scan Cache Metrics
//
//   - CacheLookupsTotal: Counter of lookups by result (hit/miss/error)
//   - CacheEntries: Gauge of stored fingerprints, updated by the Collector
//   - DBQueryTotal, DBQueryDuration, DBSizeBytes: SQLite health
//
// ## Event, Memory and Filesystem Metrics
//
//   - EventQueueDepth, EventsTotal: consumer backlog and delivered events
//   - MemoryUsageRatio, MemoryPaused, MemoryGCPauses, PixelBudget
//   - Filesystem*: NFS retry behaviour per volume, recorded through the
//     filesystem.Observer returned by NewFilesystemObserver
//
// # Usage
//
//	metrics.InitializeMetrics(volumes)
//	collector := metrics.NewCollector(provider, 30*time.Second)
//	collector.Start()
//	defer collector.Stop()
package metrics
