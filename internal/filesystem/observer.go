package filesystem

// Observer receives timings and retry outcomes of the scanner's filesystem
// calls. The metrics package implements it and imports this package, so
// the dependency runs through this interface.
type Observer interface {
	// ObserveOperation records one stat, open or readdir. volume is the
	// label of the scan root the path lives under (see VolumesForRoots).
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	// Retry outcomes of OpenWithRetry, StatWithRetry and ReadDirWithRetry,
	// keyed by the same operation names.
	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveRetryDuration(retryOp, volume string, durationSeconds float64)
	ObserveStaleError(retryOp, volume string)
}

var defaultObserver Observer

// SetObserver installs the observer used by every retrying call. Scans
// started before SetObserver, and tests that never call it, record nothing.
func SetObserver(o Observer) {
	defaultObserver = o
}

// observe returns the installed observer, or nil.
func observe() Observer {
	return defaultObserver
}
