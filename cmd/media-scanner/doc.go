// Package main provides the entry point for media-scanner.
//
// media-scanner walks one or more directory trees and reports, for every
// image, audio and video file, what it is: dimensions, orientation, alpha,
// audio format and duration, container metadata and tags. Images get the
// configured thumbnails. Results are written to stdout, one JSON object per
// line when stdout is not a terminal and as a readable listing when it is.
//
// # Usage
//
//	media-scanner [root ...]
//
// Roots given as arguments replace SCAN_PATHS. All other settings come from
// the environment; see package startup for the full list.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from environment or container limits
//  2. Configuration Loading: Reads environment variables and validates directories
//  3. Pixel Budget: Derives the largest decodable image from the heap limit
//  4. libvips: Initialized for formats the built-in decoders do not cover
//  5. Scan Cache: Opens the SQLite fingerprint cache and prunes deleted files
//  6. Scan: Runs inline, or on a producer goroutine with SCAN_ASYNC
//  7. Watch: With SCAN_WATCH, keeps scanning files as they are created or written
//  8. Shutdown: Stops the metrics server, memory monitor and cache
//
// # Output
//
// Every file yields exactly one result or error line. Progress lines are
// emitted every PROGRESS_INTERVAL files and once when the scan finishes. In
// text mode progress goes to stderr with the logs.
//
// With THUMBNAIL_DIR set, encoded thumbnails are written there as
// <fingerprint>_<w>x<h>.<ext> and the JSON result names each file.
//
// # Signals
//
// The first SIGINT or SIGTERM aborts the scan before the next file; the
// second exits immediately.
//
// # Exit Codes
//
//   - 0: every root was scanned (individual file errors do not count)
//   - 1: configuration error or a fatal scan error such as an allocation failure
//   - 2: the scan was aborted
//
// # Metrics Server
//
// With METRICS_ENABLED=true a server on METRICS_PORT exposes /metrics,
// /health, /healthz, /livez, /readyz and /version while the scan runs.
//
// # Build Requirements
//
// CGO is required for SQLite and libvips:
//
//	go build -o media-scanner ./cmd/media-scanner
package main
