package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-scanner/internal/events"
	"media-scanner/internal/logging"
	"media-scanner/internal/mediatypes"
	"media-scanner/internal/metrics"
)

// Watch scans files under the roots as they are created or written. It
// blocks until ctx is done, Abort is called or a fatal error occurs. Run it
// after the initial scan; events land on the same queue.
func (s *Scanner) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.ScanWatcherErrors.Inc()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	watchCount := 0
	for _, root := range s.cfg.Roots {
		watchCount += s.addDirectoriesToWatcher(watcher, root, nil)
	}
	logging.Info("Watching %d directories for changes", watchCount)
	metrics.ScanWatchedDirectories.Set(float64(watchCount))

	s.push(events.Event{Kind: events.KindProgress, Progress: s.progress(events.PhaseWatching, "", "")})
	return s.processWatcherEvents(ctx, watcher)
}

// addDirectoriesToWatcher adds dir and every non-hidden directory below it.
// Media files found on the way are passed to found.
func (s *Scanner) addDirectoriesToWatcher(watcher *fsnotify.Watcher, dir string, found func(string)) int {
	watchCount := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if found != nil && mediatypes.IsMediaFile(mediatypes.Ext(path)) {
				found(path)
			}
			return nil
		}
		if addErr := watcher.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.ScanWatcherErrors.Inc()
		} else {
			watchCount++
		}
		return nil
	})
	if err != nil {
		logging.Error("failed to walk %s for watcher: %v", dir, err)
		metrics.ScanWatcherErrors.Inc()
	}
	return watchCount
}

// processWatcherEvents collects changed paths and scans each one once it has
// been quiet for WatchDebounce.
func (s *Scanner) processWatcherEvents(ctx context.Context, watcher *fsnotify.Watcher) error {
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(s.cfg.WatchDebounce/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleWatcherEvent(watcher, event, pending)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher error: %v", err)
			metrics.ScanWatcherErrors.Inc()

		case now := <-ticker.C:
			if s.aborted.Load() {
				return nil
			}
			if err := s.flushPending(ctx, pending, now); err != nil {
				return err
			}
		}
	}
}

func (s *Scanner) handleWatcherEvent(watcher *fsnotify.Watcher, event fsnotify.Event, pending map[string]time.Time) {
	if s.isHidden(event.Name) {
		return
	}
	metrics.ScanWatcherEventsTotal.WithLabelValues(getEventType(event.Op)).Inc()

	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	now := time.Now()
	if info.IsDir() {
		if event.Op&fsnotify.Create == 0 {
			return
		}
		added := s.addDirectoriesToWatcher(watcher, event.Name, func(path string) { pending[path] = now })
		metrics.ScanWatchedDirectories.Add(float64(added))
		logging.Debug("Added %d new directories to watcher under %s", added, event.Name)
		return
	}
	if mediatypes.IsMediaFile(mediatypes.Ext(event.Name)) {
		pending[event.Name] = now
	}
}

// flushPending scans the paths that have been quiet long enough.
func (s *Scanner) flushPending(ctx context.Context, pending map[string]time.Time, now time.Time) error {
	for path, last := range pending {
		if now.Sub(last) < s.cfg.WatchDebounce {
			continue
		}
		delete(pending, path)

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := s.visit(ctx, s.rootOf(path), path, info, nil); err != nil {
			if errors.Is(err, ErrAborted) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *Scanner) rootOf(path string) string {
	for _, root := range s.cfg.Roots {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return root
		}
	}
	return ""
}

// isHidden reports whether any element of path below its root starts with a dot.
func (s *Scanner) isHidden(path string) bool {
	rel := path
	if root := s.rootOf(path); root != "" {
		if r, err := filepath.Rel(root, path); err == nil {
			rel = r
		}
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// getEventType returns a string representation of the fsnotify operation
func getEventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
