/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

# Purpose

Scan roots are often network mounts. This package wraps os.Stat, os.Open and
os.ReadDir with retry logic for transient NFS failures, particularly ESTALE
(stale file handle) errors that occur when files are accessed during network
issues or server-side changes.

# Usage

	info, err := filesystem.StatWithRetry("/nfs/photos/img.bmp", filesystem.DefaultRetryConfig())

	file, err := filesystem.OpenWithRetry("/nfs/photos/img.bmp", filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer file.Close()

	entries, err := filesystem.ReadDirWithRetry("/nfs/photos", filesystem.DefaultRetryConfig())

# Retry Behavior

Retries back off exponentially:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Only ESTALE triggers retries. All other errors fail immediately.

# Metrics

Operations are reported to the Observer installed with SetObserver, labelled
with the volume that VolumeResolver assigns to the path. The scanner labels
each scan root with VolumesForRoots. Without an observer nothing is recorded.
*/
package filesystem
