// Package middleware provides HTTP middleware for the scanner's metrics
// server.
//
// Logger writes one line per request through the logging package:
//
//	[INFO] http: 192.0.2.1 GET /version -> 200 112B 0s
//
// Prometheus scrapes are skipped, server errors log as warnings and any
// request slower than SlowRequest logs as a warning even on a skipped
// path. With LOG_HEALTH_CHECKS off, probes are logged only when their
// status changes, which records when /readyz turns ready after the first
// scan.
package middleware
