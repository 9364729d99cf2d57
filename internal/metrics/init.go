package metrics

import "media-scanner/internal/scanerr"

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// volumes are the labels assigned to the scan roots.
// Call this once at startup after metric registration.
func InitializeMetrics(volumes []string) {
	for _, r := range []string{"done", "aborted", "failed"} {
		ScanRunsTotal.WithLabelValues(r)
	}

	// --- Per-file outcomes ---
	for _, t := range []string{"image", "video", "audio", "playlist"} {
		for _, s := range []string{"ok", "error", "cached"} {
			ScanFilesTotal.WithLabelValues(t, s)
		}
		ScanFileDuration.WithLabelValues(t)
	}
	for _, k := range scanerr.Kinds {
		ScanErrorsTotal.WithLabelValues(k.String())
	}

	// --- Decoders ---
	for _, f := range []string{"bmp", "jpeg", "png", "gif", "webp", "tiff", "wav", "aiff", "avi", "vips", "tags"} {
		DecodeDuration.WithLabelValues(f)
		DecodeBytesRead.WithLabelValues(f)
	}
	VipsFallbacksTotal.WithLabelValues("success")
	VipsFallbacksTotal.WithLabelValues("error")

	// --- Thumbnails ---
	for _, f := range []string{"jpeg", "png"} {
		ThumbnailsTotal.WithLabelValues(f, "success")
		ThumbnailsTotal.WithLabelValues(f, "error")
		ThumbnailEncodeDuration.WithLabelValues(f)
		ThumbnailBytes.WithLabelValues(f)
	}

	// --- Scan cache ---
	for _, r := range []string{"hit", "miss", "error"} {
		CacheLookupsTotal.WithLabelValues(r)
	}
	for _, op := range []string{"initialize_schema", "lookup", "store", "prune", "count"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	// --- Events ---
	for _, k := range []string{"result", "error", "progress", "finished"} {
		EventsTotal.WithLabelValues(k)
	}

	// --- Filesystem operation metrics (per volume x operation) ---
	volumes = append(volumes, "unknown")
	for _, vol := range volumes {
		for _, op := range []string{"stat", "open", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
