package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"media-scanner/internal/database"
	"media-scanner/internal/events"
	"media-scanner/internal/filesystem"
	"media-scanner/internal/handlers"
	"media-scanner/internal/logging"
	"media-scanner/internal/media"
	"media-scanner/internal/memory"
	"media-scanner/internal/metrics"
	"media-scanner/internal/scanner"
	"media-scanner/internal/startup"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitAborted = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	startTime := time.Now()

	// Must run before anything allocates much.
	memResult := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig(args)
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return exitFailed
	}

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	volumes := filesystem.VolumesForRoots(config.Roots)
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(volumes))
	metrics.InitializeMetrics(volumeLabels(volumes))

	monitor := memory.NewMonitor(memory.DefaultConfig())
	pixelBudget := memory.PixelBudget(config.MaxPixels, monitor.Limit())
	startup.LogMemoryConfig(memResult, pixelBudget)

	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, HEIF/AVIF and other fallback formats will fail: %v", err)
	}
	defer media.ShutdownVips()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var db *database.Database
	if config.CacheEnabled {
		db = openCache(ctx, config)
		if db != nil {
			defer func() {
				if err := db.Close(); err != nil {
					logging.Warn("Failed to close scan cache: %v", err)
				}
			}()
		}
	}

	proc, err := media.NewProcessor(media.Config{
		Thumbnails: config.ThumbnailSpecs,
		BlockSize:  config.BlockSize,
		MaxPixels:  pixelBudget,
	})
	if err != nil {
		logging.Error("Invalid processor configuration: %v", err)
		return exitFailed
	}

	scanCfg := scanner.Config{
		Roots:              config.Roots,
		Rescan:             config.Rescan,
		ProgressInterval:   config.ProgressInterval,
		MaxConcurrentRoots: config.Workers,
		WatchDebounce:      config.WatchDebounce,
	}
	var cache scanner.Cache
	if db != nil {
		cache = db
	}
	s, err := scanner.New(scanCfg, proc, cache, monitor)
	if err != nil {
		logging.Error("Failed to create scanner: %v", err)
		return exitFailed
	}

	monitor.Start()
	defer monitor.Stop()

	tracker := events.NewTracker()
	stats := &statsAdapter{db: db, queue: s.Queue()}
	collector := metrics.NewCollector(stats, 15*time.Second)
	collector.Start()
	defer collector.Stop()

	var metricsServer *http.Server
	if config.MetricsEnabled {
		metricsServer = startMetricsServer(config, handlers.New(tracker, stats), startTime)
	}

	go handleShutdown(cancel)

	thumbDir := ""
	if config.ThumbnailsWritten {
		thumbDir = config.ThumbnailDir
	}
	out := newOutput(os.Stdout, os.Stderr, useJSON(config.OutputFormat, os.Stdout), thumbDir, tracker)

	config.LogScanStarted()
	if config.Async {
		if err = s.Start(ctx); err == nil {
			err = s.Drain(ctx, out.handle)
		}
	} else {
		err = s.Run(ctx, out.handle)
	}

	if err == nil && db != nil {
		if setErr := db.SetLastScan(ctx, time.Now()); setErr != nil {
			logging.Warn("Failed to record scan time: %v", setErr)
		}
	}

	if err == nil && config.Watch {
		tracker.SetPhase(events.PhaseWatching)
		err = watch(ctx, s, out.handle)
	}

	if metricsServer != nil {
		shutdownMetricsServer(metricsServer)
	}
	startup.LogShutdownComplete()

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, scanner.ErrAborted):
		return exitAborted
	default:
		logging.Error("Scan failed: %v", err)
		return exitFailed
	}
}

// openCache opens the scan cache and prunes entries of deleted files. A
// cache that cannot be opened disables caching for this run.
func openCache(ctx context.Context, config *startup.Config) *database.Database {
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		logging.Warn("Scan cache disabled: %v", err)
		return nil
	}

	if config.Prune {
		if _, err := db.Prune(ctx, fileExists); err != nil {
			logging.Warn("Failed to prune scan cache: %v", err)
		}
	}

	entries, err := db.Count(ctx)
	if err != nil {
		logging.Warn("Failed to count scan cache entries: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart), entries)

	if last, err := db.GetLastScan(ctx); err == nil && !last.IsZero() {
		logging.Info("  Last completed scan: %s", last.Format(time.RFC1123))
	}
	return db
}

func fileExists(path string) bool {
	_, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	return err == nil
}

// watch runs the watcher on its own goroutine and delivers its events on
// this one until ctx is cancelled.
func watch(ctx context.Context, s *scanner.Scanner, h events.Handler) error {
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	q := s.Queue()
	for {
		select {
		case <-q.Notify():
			q.ProcessPending(h)
		case err := <-done:
			q.ProcessPending(h)
			return err
		}
	}
}

func startMetricsServer(config *startup.Config, h *handlers.Handlers, startTime time.Time) *http.Server {
	router := h.Router(config.LogHealthChecks)
	startup.LogHTTPRoutes(router)

	srv := &http.Server{
		Addr:              ":" + config.MetricsPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	startup.LogServerStarted(config.MetricsPort, time.Since(startTime))
	return srv
}

func shutdownMetricsServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down metrics server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Metrics server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Metrics server stopped")
	}
}

// handleShutdown cancels the scan on the first SIGINT or SIGTERM and exits
// on the second.
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	startup.LogShutdownStep("Aborting scan")
	cancel()

	<-sigChan
	startup.LogFatal("Second signal received, exiting without cleanup")
}

func volumeLabels(volumes map[string]string) []string {
	labels := make([]string, 0, len(volumes))
	for label := range volumes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
