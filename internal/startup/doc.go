// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is loaded from environment variables via [LoadConfig]. Scan
// roots given on the command line replace SCAN_PATHS. The following
// environment variables are supported:
//
//   - SCAN_PATHS: Roots to scan, separated like PATH
//   - DATABASE_DIR: Directory of the scan cache (default: user cache dir/media-scanner)
//   - SCAN_CACHE: Skip files whose fingerprint is cached (default: true)
//   - SCAN_RESCAN: Ignore cache hits but keep recording (default: false)
//   - SCAN_PRUNE: Drop cache entries of deleted files at startup (default: true)
//   - THUMBNAIL_SPECS: Thumbnails per image, e.g. "320x240,keep;64x0,png" (default: 256x256,keep, "none" disables)
//   - THUMBNAIL_DIR: Write encoded thumbnails here (default: not written)
//   - SCAN_ASYNC: Scan on a producer goroutine (default: false)
//   - SCAN_WORKERS: Roots walked at once in async mode (default: derived from CPUs)
//   - SCAN_BLOCK_SIZE: Read size of the streaming buffer in bytes
//   - SCAN_MAX_PIXELS: Largest image decoded to pixels (default: derived from GOMEMLIMIT)
//   - SCAN_WATCH: Keep watching the roots after the scan (default: false)
//   - WATCH_DEBOUNCE: Quiet period before a changed file is scanned (default: 500ms)
//   - PROGRESS_INTERVAL: Emit progress every N files, 0 disables (default: 100)
//   - OUTPUT_FORMAT: auto, json or text; auto picks text on a terminal (default: auto)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Serve metrics and health endpoints (default: false)
//   - LOG_HEALTH_CHECKS: Log probe requests to the metrics server (default: false)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - MEMORY_LIMIT: Container memory limit for automatic GOMEMLIMIT configuration
//   - MEMORY_RATIO: Percentage of MEMORY_LIMIT for Go heap (default: 0.85)
//   - GOMEMLIMIT: Direct override for Go's memory limit
//
// # Directory Setup
//
//   - Scan roots: Checked but never created
//   - Database directory: Optional, the scan cache is disabled if it is not writable
//   - Thumbnail directory: Optional, thumbnails are only reported if it is not writable
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Lifecycle Logging
//
// Everything is logged to stderr; stdout carries scan results only.
//   - [LogMemoryConfig]: Memory limit and pixel budget
//   - [LogDatabaseInit]: Scan cache initialization timing
//   - [Config.LogScanStarted]: Scan mode, roots and thumbnail specs
//   - [LogHTTPRoutes]: Registered metrics routes (debug level)
//   - [LogServerStarted]: Metrics endpoints and startup duration
//   - [LogShutdownInitiated]: Graceful shutdown start
//   - [LogShutdownComplete]: Shutdown completion
package startup
