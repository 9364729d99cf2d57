package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-scanner/internal/database"
	"media-scanner/internal/logging"
	"media-scanner/internal/media"
	"media-scanner/internal/memory"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// DefaultThumbnailSpecs is used when THUMBNAIL_SPECS is unset. "none"
// disables thumbnails.
const DefaultThumbnailSpecs = "256x256,keep"

// Config holds all application configuration
type Config struct {
	Roots            []string
	DatabaseDir      string
	ThumbnailSpecs   []media.ThumbnailSpec
	ThumbnailDir     string
	Async            bool
	Rescan           bool
	Prune            bool
	Watch            bool
	WatchDebounce    time.Duration
	BlockSize        int
	MaxPixels        int64
	Workers          int
	ProgressInterval int
	MetricsPort      string
	MetricsEnabled   bool
	LogHealthChecks  bool
	// OutputFormat is "auto", "json" or "text".
	OutputFormat string

	// Derived paths
	DatabasePath string

	// Feature flags based on directory availability
	CacheEnabled      bool
	ThumbnailsWritten bool
}

// LoadConfig loads and validates configuration from environment variables.
// Non-empty args replace SCAN_PATHS as the scan roots.
func LoadConfig(args []string) (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if level, ok := logging.ParseLevel(os.Getenv("LOG_LEVEL")); ok {
		logging.SetLevel(level)
	}

	scanPaths := getEnv("SCAN_PATHS", "")
	databaseDir := getEnv("DATABASE_DIR", defaultDatabaseDir())
	thumbnailSpecs := getEnv("THUMBNAIL_SPECS", DefaultThumbnailSpecs)
	thumbnailDir := getEnv("THUMBNAIL_DIR", "")
	useCache := getEnvBool("SCAN_CACHE", true)
	async := getEnvBool("SCAN_ASYNC", false)
	rescan := getEnvBool("SCAN_RESCAN", false)
	prune := getEnvBool("SCAN_PRUNE", true)
	watch := getEnvBool("SCAN_WATCH", false)
	watchDebounceStr := getEnv("WATCH_DEBOUNCE", "500ms")
	blockSize := getEnvInt("SCAN_BLOCK_SIZE", 0)
	maxPixels := getEnvInt64("SCAN_MAX_PIXELS", 0)
	workers := getEnvInt("SCAN_WORKERS", 0)
	progressInterval := getEnvInt("PROGRESS_INTERVAL", 100)
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", false)
	outputFormat := strings.ToLower(getEnv("OUTPUT_FORMAT", "auto"))

	if len(args) > 0 {
		logging.Info("  SCAN_PATHS:          (from arguments)")
	} else {
		logging.Info("  SCAN_PATHS:          %s", scanPaths)
	}
	logging.Info("  DATABASE_DIR:        %s", databaseDir)
	logging.Info("  SCAN_CACHE:          %v", useCache)
	logging.Info("  THUMBNAIL_SPECS:     %s", thumbnailSpecs)
	logging.Info("  THUMBNAIL_DIR:       %s", thumbnailDir)
	logging.Info("  SCAN_ASYNC:          %v", async)
	logging.Info("  SCAN_RESCAN:         %v", rescan)
	logging.Info("  SCAN_PRUNE:          %v", prune)
	logging.Info("  SCAN_WATCH:          %v", watch)
	logging.Info("  WATCH_DEBOUNCE:      %s", watchDebounceStr)
	logging.Info("  SCAN_BLOCK_SIZE:     %d", blockSize)
	logging.Info("  SCAN_MAX_PIXELS:     %d", maxPixels)
	logging.Info("  SCAN_WORKERS:        %d", workers)
	logging.Info("  PROGRESS_INTERVAL:   %d", progressInterval)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  OUTPUT_FORMAT:       %s", outputFormat)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	watchDebounce, err := time.ParseDuration(watchDebounceStr)
	if err != nil || watchDebounce <= 0 {
		logging.Warn("  Invalid WATCH_DEBOUNCE, using default: 500ms")
		watchDebounce = 500 * time.Millisecond
	}

	switch outputFormat {
	case "auto", "json", "text":
	default:
		return nil, fmt.Errorf("invalid OUTPUT_FORMAT %q: want auto, json or text", outputFormat)
	}

	var specs []media.ThumbnailSpec
	if !strings.EqualFold(thumbnailSpecs, "none") {
		specs, err = media.ParseThumbnailSpecs(thumbnailSpecs)
		if err != nil {
			return nil, fmt.Errorf("invalid THUMBNAIL_SPECS: %w", err)
		}
	}

	roots := append([]string(nil), args...)
	if len(roots) == 0 {
		roots = splitPaths(scanPaths)
	}
	if len(roots) == 0 {
		return nil, errors.New("no scan paths: pass them as arguments or set SCAN_PATHS")
	}

	// Resolve paths
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for i, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve scan path %q: %w", root, err)
		}
		roots[i] = abs
		logging.Info("  Scan root (absolute): %s", abs)
		if err := checkRoot(abs); err != nil {
			logging.Warn("  Scan root issue: %v", err)
		}
	}

	config := &Config{
		Roots:            roots,
		ThumbnailSpecs:   specs,
		Async:            async,
		Rescan:           rescan,
		Prune:            prune,
		Watch:            watch,
		WatchDebounce:    watchDebounce,
		BlockSize:        blockSize,
		MaxPixels:        maxPixels,
		Workers:          workers,
		ProgressInterval: progressInterval,
		MetricsPort:      metricsPort,
		MetricsEnabled:   metricsEnabled,
		LogHealthChecks:  logHealthChecks,
		OutputFormat:     outputFormat,
	}

	if useCache && databaseDir != "" {
		databaseDir, err = filepath.Abs(databaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
		}
		logging.Info("  Database directory (absolute): %s", databaseDir)
		config.DatabaseDir = databaseDir
		config.DatabasePath = filepath.Join(databaseDir, database.FileName)
		config.CacheEnabled = setupOptionalDir(databaseDir, "scan cache")
	}

	if thumbnailDir != "" {
		thumbnailDir, err = filepath.Abs(thumbnailDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve thumbnail directory path: %w", err)
		}
		logging.Info("  Thumbnail directory (absolute): %s", thumbnailDir)
		config.ThumbnailDir = thumbnailDir
		config.ThumbnailsWritten = setupOptionalDir(thumbnailDir, "thumbnail output")
	}

	// Summary
	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Scan cache:        %s", enabledString(config.CacheEnabled))
	logging.Info("    Thumbnail output:  %s", enabledString(config.ThumbnailsWritten))
	logging.Info("    Watch mode:        %s", enabledString(config.Watch))
	logging.Info("    Metrics:           %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// ThumbnailSpecStrings returns the configured specs in THUMBNAIL_SPECS form.
func (c *Config) ThumbnailSpecStrings() []string {
	out := make([]string, len(c.ThumbnailSpecs))
	for i, s := range c.ThumbnailSpecs {
		out[i] = s.String()
	}
	return out
}

func defaultDatabaseDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "media-scanner")
}

// splitPaths splits a PATH-style list, dropping empty elements.
func splitPaths(s string) []string {
	var out []string
	for _, p := range filepath.SplitList(s) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := ensureDirectory(path, name); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration, entries int64) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SCAN CACHE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Scan cache opened in %v (%d entries)", duration, entries)
}

// LogMemoryConfig logs the heap limit and the per-image pixel budget
// derived from it.
func LogMemoryConfig(result memory.ConfigResult, pixelBudget int64) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY")
	logging.Info("------------------------------------------------------------")
	switch {
	case !result.Configured:
		logging.Info("  GOMEMLIMIT:      not set (no container limit found)")
	case result.Source == "GOMEMLIMIT":
		logging.Info("  GOMEMLIMIT:      %s (from environment)", formatBytesStartup(result.GoMemLimit))
	default:
		logging.Info("  Container limit: %s", formatBytesStartup(result.ContainerLimit))
		logging.Info("  GOMEMLIMIT:      %s (%.0f%%)", formatBytesStartup(result.GoMemLimit), result.Ratio*100)
	}
	logging.Info("  Pixel budget:    %d pixels (%s decoded)", pixelBudget, formatBytesStartup(pixelBudget*4))
}

func formatBytesStartup(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

// LogScanStarted logs the scan setup right before the first root is walked.
func (c *Config) LogScanStarted() {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SCAN")
	logging.Info("------------------------------------------------------------")
	mode := "sync"
	if c.Async {
		mode = "async"
	}
	logging.Info("  Mode:            %s", mode)
	logging.Info("  Roots:           %d", len(c.Roots))
	if len(c.ThumbnailSpecs) == 0 {
		logging.Info("  Thumbnails:      none")
	} else {
		logging.Info("  Thumbnails:      %s", strings.Join(c.ThumbnailSpecStrings(), "; "))
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the routes of the metrics server at debug level
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("METRICS SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })

	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
}

// LogServerStarted logs the metrics endpoint
func LogServerStarted(metricsPort string, startup time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", startup)
	logging.Info("  Metrics:         http://0.0.0.0:%s/metrics", metricsPort)
	logging.Info("  Health:          http://0.0.0.0:%s/healthz", metricsPort)
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___          _____
   /  |/  /__  ____/ (_)___ _   / ___/_________ _____  ____  ___  _____
  / /|_/ / _ \/ __  / / __ '/   \__ \/ ___/ __ '/ __ \/ __ \/ _ \/ ___/
 / /  / /  __/ /_/ / / /_/ /   ___/ / /__/ /_/ / / / / / / /  __/ /
/_/  /_/\___/\__,_/_/\__,_/   /____/\___/\__,_/_/ /_/_/ /_/\___/_/

------------------------------------------------------------`
	// stdout is reserved for scan results.
	fmt.Fprintln(os.Stderr, banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

// checkRoot reports a scan root that is missing or unreadable. Roots are
// never created.
func checkRoot(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat scan root: %w", err)
	}
	if !info.IsDir() {
		logging.Debug("    Scan root is a single file")
		return nil
	}

	if logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return fmt.Errorf("failed to read scan root: %w", err)
		}
		fileCount := 0
		dirCount := 0
		for _, e := range entries {
			if e.IsDir() {
				dirCount++
			} else {
				fileCount++
			}
		}
		logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
	}

	return nil
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
