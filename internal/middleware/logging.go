package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"media-scanner/internal/logging"
)

// responseWriter records the status and body size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	// SkipPaths are not logged unless the request is slow.
	SkipPaths []string

	// LogHealthChecks logs every probe. When false a probe is logged only
	// when its status differs from the previous answer on the same path,
	// so the readiness flip at the end of the first scan still shows up.
	LogHealthChecks bool

	// SlowRequest logs any request taking longer at warn level, skipped
	// paths included. Zero disables it.
	SlowRequest time.Duration
}

// DefaultLoggingConfig skips Prometheus scrapes, which arrive every few
// seconds.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:       []string{"/metrics"},
		LogHealthChecks: true,
		SlowRequest:     2 * time.Second,
	}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// probeStatus remembers the last status answered on each probe path.
type probeStatus struct {
	mu   sync.Mutex
	last map[string]int
}

// record stores status and reports whether it differs from the previous
// answer. The first answer counts as a change.
func (p *probeStatus) record(path string, status int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev, seen := p.last[path]
	p.last[path] = status
	return !seen || prev != status
}

// sanitizeLogField removes control characters that could be used for log injection.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\x1b', r < 0x20 && r != '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Logger returns HTTP logging middleware for the metrics server.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	probes := &probeStatus{last: make(map[string]int)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			path := r.URL.Path
			switch {
			case config.SlowRequest > 0 && duration > config.SlowRequest:
				logging.Warn("http: slow request %s", describeRequest(r, wrapped, duration))
			case skipPath(path, config.SkipPaths):
			case healthCheckPaths[path]:
				if changed := probes.record(path, wrapped.statusCode); changed || config.LogHealthChecks {
					logging.Info("http: %s", describeRequest(r, wrapped, duration))
				}
			case wrapped.statusCode >= http.StatusInternalServerError:
				logging.Warn("http: %s", describeRequest(r, wrapped, duration))
			default:
				logging.Info("http: %s", describeRequest(r, wrapped, duration))
			}
		})
	}
}

// describeRequest renders "<client> <method> <uri> -> <status> <bytes>B <duration>".
func describeRequest(r *http.Request, rw *responseWriter, duration time.Duration) string {
	uri := r.URL.Path
	if r.URL.RawQuery != "" {
		uri += "?" + r.URL.RawQuery
	}
	return fmt.Sprintf("%s %s %s -> %d %dB %v",
		sanitizeLogField(getClientIP(r)),
		sanitizeLogField(r.Method),
		sanitizeLogField(uri),
		rw.statusCode,
		rw.bytesWritten,
		duration.Round(time.Millisecond),
	)
}

func skipPath(path string, skip []string) bool {
	for _, p := range skip {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
