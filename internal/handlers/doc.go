// Package handlers serves the scanner's operational endpoints: Prometheus
// metrics, health, liveness and readiness probes, and build information.
//
// Health is derived from scan events: the service is ready once the first
// scan has finished and degraded when that scan ended with a fatal error.
package handlers
