package scanner

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"media-scanner/internal/events"
	"media-scanner/internal/filesystem"
	"media-scanner/internal/logging"
	"media-scanner/internal/media"
	"media-scanner/internal/mediatypes"
	"media-scanner/internal/memory"
	"media-scanner/internal/metrics"
	"media-scanner/internal/scanerr"
	"media-scanner/internal/workers"
)

// ErrAborted is returned when a scan stops because of Abort or a cancelled
// context.
var ErrAborted = errors.New("scan aborted")

var errNilHandler = errors.New("scanner: nil event handler")

const defaultWatchDebounce = 500 * time.Millisecond

// Processor turns one file into a result. *media.Processor implements it.
type Processor interface {
	Process(path string, info os.FileInfo) (*media.Result, error)
}

// Cache records which file versions were already scanned.
type Cache interface {
	Lookup(fingerprint uint64) (bool, error)
	Store(fingerprint uint64, path string) error
}

// Config configures a Scanner.
type Config struct {
	// Roots are the directories (or single files) to scan.
	Roots []string

	// Rescan ignores cache hits. Results are still stored.
	Rescan bool

	// ProgressInterval emits a progress event every N files. Zero disables
	// periodic progress; a finished event is always emitted.
	ProgressInterval int

	// MaxConcurrentRoots bounds the roots walked at once by Start.
	// Zero derives it from the CPU count.
	MaxConcurrentRoots int

	// WatchDebounce is how long a watched file must stay quiet before it
	// is scanned.
	WatchDebounce time.Duration

	Retry filesystem.RetryConfig
}

// Scanner walks roots and reports one event per media file. A Scanner runs
// once; create a new one for every scan.
type Scanner struct {
	cfg     Config
	proc    Processor
	cache   Cache
	monitor *memory.Monitor
	queue   *events.Queue

	started atomic.Bool
	aborted atomic.Bool
	halted  atomic.Bool
	done    chan struct{}
	err     error

	startTime time.Time
	seen      atomic.Int64
	files     atomic.Int64
	errs      atomic.Int64
	skipped   atomic.Int64
}

// New creates a Scanner. cache and monitor may be nil.
func New(cfg Config, proc Processor, cache Cache, monitor *memory.Monitor) (*Scanner, error) {
	if len(cfg.Roots) == 0 {
		return nil, errors.New("scanner: no roots configured")
	}
	if proc == nil {
		return nil, errors.New("scanner: nil processor")
	}
	if cfg.MaxConcurrentRoots <= 0 {
		cfg.MaxConcurrentRoots = workers.ForRoots(len(cfg.Roots))
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = defaultWatchDebounce
	}
	if cfg.ProgressInterval < 0 {
		cfg.ProgressInterval = 0
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialBackoff == 0 {
		resolver := cfg.Retry.VolumeResolver
		cfg.Retry = filesystem.DefaultRetryConfig()
		cfg.Retry.VolumeResolver = resolver
	}
	return &Scanner{
		cfg:     cfg,
		proc:    proc,
		cache:   cache,
		monitor: monitor,
		queue:   events.NewQueue(),
		done:    make(chan struct{}),
	}, nil
}

// Queue returns the queue events are pushed to.
func (s *Scanner) Queue() *events.Queue { return s.queue }

// Abort asks the scan to stop before the next file.
func (s *Scanner) Abort() { s.aborted.Store(true) }

// Run scans synchronously on the calling goroutine, handing pending events
// to h after every file. It returns nil when every root was walked,
// ErrAborted on abort, or the fatal error that ended the scan. h must not
// be nil.
func (s *Scanner) Run(ctx context.Context, h events.Handler) error {
	if h == nil {
		return errNilHandler
	}
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scanner: already started")
	}
	defer close(s.done)

	s.err = s.scan(ctx, false, func() { s.queue.ProcessPending(h) })
	s.queue.ProcessPending(h)
	return s.err
}

// Start scans on a producer goroutine and returns immediately. Consume the
// events with Drain, or with the queue's Notify and ProcessPending.
func (s *Scanner) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scanner: already started")
	}
	go func() {
		defer close(s.done)
		s.err = s.scan(ctx, true, nil)
	}()
	return nil
}

// Done is closed when a started scan has finished.
func (s *Scanner) Done() <-chan struct{} { return s.done }

// Wait blocks until the scan finishes and returns its outcome.
func (s *Scanner) Wait() error {
	<-s.done
	return s.err
}

// Drain runs h on the caller's goroutine for every event until the scan
// started by Start finishes. Cancelling ctx aborts the scan; the remaining
// events are still delivered.
func (s *Scanner) Drain(ctx context.Context, h events.Handler) error {
	if h == nil {
		return errNilHandler
	}
	for {
		select {
		case <-s.queue.Notify():
			s.queue.ProcessPending(h)
		case <-s.done:
			s.queue.ProcessPending(h)
			return s.err
		case <-ctx.Done():
			s.Abort()
			<-s.done
			s.queue.ProcessPending(h)
			return s.err
		}
	}
}

// Progress returns a snapshot of the counters.
func (s *Scanner) Progress() events.Progress {
	return s.progress(events.PhaseWalking, "", "")
}

func (s *Scanner) scan(ctx context.Context, concurrent bool, afterFile func()) error {
	s.startTime = time.Now()
	metrics.ScanRunning.Set(1)
	defer metrics.ScanRunning.Set(0)

	logging.Info("Scan started: %d root(s), rescan=%v", len(s.cfg.Roots), s.cfg.Rescan)

	var err error
	if concurrent && len(s.cfg.Roots) > 1 {
		err = s.walkRootsConcurrently(ctx)
	} else {
		for _, root := range s.cfg.Roots {
			if err = s.walkRoot(ctx, root, afterFile); err != nil {
				break
			}
		}
	}

	s.finish(err)
	return err
}

// walkRootsConcurrently walks each root on its own goroutine, at most
// MaxConcurrentRoots at a time. A fatal error on one root halts the others.
func (s *Scanner) walkRootsConcurrently(ctx context.Context) error {
	logging.Debug("Walking %d roots with %d workers", len(s.cfg.Roots), s.cfg.MaxConcurrentRoots)

	sem := make(chan struct{}, s.cfg.MaxConcurrentRoots)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fatal error
		abort error
	)
	for _, root := range s.cfg.Roots {
		wg.Add(1)
		go func(root string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := s.walkRoot(ctx, root, nil)
			if err == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrAborted) {
				abort = err
				return
			}
			if fatal == nil {
				fatal = err
			}
			s.halted.Store(true)
		}(root)
	}
	wg.Wait()

	if fatal != nil {
		return fatal
	}
	return abort
}

func (s *Scanner) stopped(ctx context.Context) bool {
	return s.aborted.Load() || s.halted.Load() || ctx.Err() != nil
}

// checkpoint runs between files: it polls the abort flag and waits out
// memory pressure.
func (s *Scanner) checkpoint(ctx context.Context) error {
	if s.stopped(ctx) {
		return ErrAborted
	}
	if s.monitor != nil && !s.monitor.WaitIfPaused(ctx) {
		return ErrAborted
	}
	if s.stopped(ctx) {
		return ErrAborted
	}
	return nil
}

// scanFile processes one file and pushes its event. Only fatal errors are
// returned; every other failure becomes an error event.
func (s *Scanner) scanFile(root, path string, info os.FileInfo) error {
	fileType := mediatypes.GetFileType(mediatypes.Ext(path))
	fp := Fingerprint(path, info.ModTime(), info.Size())

	if s.cached(fp) {
		s.skipped.Add(1)
		metrics.ScanFilesTotal.WithLabelValues(string(fileType), "cached").Inc()
		s.tick(root, path)
		return nil
	}

	res, err := s.proc.Process(path, info)
	if err != nil {
		s.errs.Add(1)
		metrics.ScanErrorsTotal.WithLabelValues(scanerr.KindOf(err).String()).Inc()
		metrics.ScanFilesTotal.WithLabelValues(string(fileType), "error").Inc()
		s.push(events.Event{Kind: events.KindError, Path: path, Err: err})
		if scanerr.IsFatal(err) {
			logging.Error("Fatal error scanning %s: %v", path, err)
			return err
		}
		logging.Debug("Failed to scan %s: %v", path, err)
		s.tick(root, path)
		return nil
	}

	res.Fingerprint = fp
	s.files.Add(1)
	metrics.ScanFilesTotal.WithLabelValues(string(res.Type), "ok").Inc()
	s.remember(fp, path)
	s.push(events.Event{Kind: events.KindResult, Path: path, Result: res})
	s.tick(root, path)
	return nil
}

func (s *Scanner) cached(fp uint64) bool {
	if s.cache == nil || s.cfg.Rescan {
		return false
	}
	hit, err := s.cache.Lookup(fp)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		logging.Warn("Scan cache lookup failed: %v", err)
		return false
	case hit:
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return true
	default:
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return false
	}
}

func (s *Scanner) remember(fp uint64, path string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Store(fp, path); err != nil {
		logging.Warn("Failed to record %s in scan cache: %v", path, err)
	}
}

// tick counts a finished file and emits periodic progress.
func (s *Scanner) tick(root, path string) {
	n := s.seen.Add(1)
	if s.cfg.ProgressInterval > 0 && n%int64(s.cfg.ProgressInterval) == 0 {
		s.push(events.Event{Kind: events.KindProgress, Path: path, Progress: s.progress(events.PhaseWalking, root, path)})
	}
}

func (s *Scanner) progress(phase events.Phase, root, path string) events.Progress {
	p := events.Progress{
		Phase:   phase,
		Root:    root,
		Path:    path,
		Done:    s.files.Load(),
		Errors:  s.errs.Load(),
		Skipped: s.skipped.Load(),
	}
	if !s.startTime.IsZero() {
		p.Elapsed = time.Since(s.startTime)
	}
	if secs := p.Elapsed.Seconds(); secs > 0 {
		p.Rate = float64(s.seen.Load()) / secs
	}
	return p
}

func (s *Scanner) push(ev events.Event) {
	metrics.EventsTotal.WithLabelValues(ev.Kind.String()).Inc()
	s.queue.Push(ev)
}

func (s *Scanner) finish(err error) {
	phase := events.PhaseDone
	switch {
	case err == nil:
	case errors.Is(err, ErrAborted):
		phase = events.PhaseAborted
	default:
		phase = events.PhaseFailed
	}

	p := s.progress(phase, "", "")
	metrics.ScanRunsTotal.WithLabelValues(string(phase)).Inc()
	metrics.ScanLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.ScanLastRunDuration.Set(p.Elapsed.Seconds())

	ev := events.Event{Kind: events.KindFinished, Progress: p}
	if phase == events.PhaseFailed {
		ev.Err = err
	}
	s.push(ev)

	logging.Info("Scan %s: %d scanned, %d errors, %d cached in %v",
		phase, p.Done, p.Errors, p.Skipped, p.Elapsed.Round(time.Millisecond))
}
