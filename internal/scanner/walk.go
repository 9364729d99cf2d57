package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"media-scanner/internal/events"
	"media-scanner/internal/filesystem"
	"media-scanner/internal/logging"
	"media-scanner/internal/mediatypes"
	"media-scanner/internal/scanerr"
)

// walkRoot scans one root. A root that is a file is scanned on its own; a
// root that cannot be stat'ed produces one error event.
func (s *Scanner) walkRoot(ctx context.Context, root string, afterFile func()) error {
	info, err := filesystem.StatWithRetry(root, s.cfg.Retry)
	if err != nil {
		logging.Warn("Cannot access scan root %s: %v", root, err)
		s.errs.Add(1)
		s.push(events.Event{
			Kind: events.KindError,
			Path: root,
			Err:  scanerr.WithPath(scanerr.Wrap(scanerr.KindIO, "stat root", err), root),
		})
		return nil
	}

	if !info.IsDir() {
		return s.visit(ctx, root, root, info, afterFile)
	}
	logging.Debug("Walking %s", root)
	return s.walkDir(ctx, root, root, afterFile)
}

// walkDir visits dir in name order, depth first. Hidden entries are skipped.
// Symlinks are followed to files but not to directories.
func (s *Scanner) walkDir(ctx context.Context, root, dir string, afterFile func()) error {
	entries, err := filesystem.ReadDirWithRetry(dir, s.cfg.Retry)
	if err != nil {
		logging.Warn("Error reading directory %s: %v", dir, err)
		return nil
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if err := s.walkDir(ctx, root, path, afterFile); err != nil {
				return err
			}
			continue
		}
		if !mediatypes.IsMediaFile(mediatypes.Ext(path)) {
			continue
		}

		info, err := entryInfo(entry, path)
		if err != nil {
			logging.Warn("Error getting info for %s: %v", path, err)
			continue
		}
		if info == nil {
			continue
		}
		if err := s.visit(ctx, root, path, info, afterFile); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) visit(ctx context.Context, root, path string, info os.FileInfo, afterFile func()) error {
	if err := s.checkpoint(ctx); err != nil {
		return err
	}
	err := s.scanFile(root, path, info)
	if afterFile != nil {
		afterFile()
	}
	return err
}

// entryInfo returns the info of a regular file, following symlinks. It
// returns nil for anything that is not a regular file.
func entryInfo(entry fs.DirEntry, path string) (os.FileInfo, error) {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, nil
		}
		return info, nil
	}
	if !entry.Type().IsRegular() {
		return nil, nil
	}
	return entry.Info()
}
