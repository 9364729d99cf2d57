package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-scanner/internal/logging"
)

// SQLite integers are signed; fingerprints are stored bit for bit.
func dbKey(fingerprint uint64) int64 { return int64(fingerprint) }

// Lookup reports whether fingerprint was recorded by an earlier scan.
func (d *Database) Lookup(fingerprint uint64) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("lookup", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var one int
	err = d.db.QueryRowContext(ctx,
		"SELECT 1 FROM scan_cache WHERE fingerprint = ?", dbKey(fingerprint),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("scan cache lookup: %w", err)
	}
	return true, nil
}

// Store records fingerprint for path, replacing any older fingerprint of the
// same path.
func (d *Database) Store(fingerprint uint64, path string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("store", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM scan_cache WHERE path = ? AND fingerprint != ?", path, dbKey(fingerprint),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scan_cache (fingerprint, path, scanned_at)
			VALUES (?, ?, strftime('%s', 'now'))
			ON CONFLICT(fingerprint) DO UPDATE SET
				path = excluded.path,
				scanned_at = excluded.scanned_at
		`, dbKey(fingerprint), path)
		return err
	})
	if err != nil {
		return fmt.Errorf("scan cache store: %w", err)
	}
	return nil
}

// Prune removes entries whose path no longer exists according to exists. It
// returns the number of entries removed.
func (d *Database) Prune(ctx context.Context, exists func(path string) bool) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("prune", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	var missing []string
	missing, err = d.missingPaths(ctx, exists)
	if err != nil {
		return 0, fmt.Errorf("scan cache prune: %w", err)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	var removed int64
	err = d.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "DELETE FROM scan_cache WHERE path = ?")
		if err != nil {
			return err
		}
		defer func() {
			if err := stmt.Close(); err != nil {
				logging.Warn("failed to close prune statement: %v", err)
			}
		}()
		for _, path := range missing {
			res, err := stmt.ExecContext(ctx, path)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil {
				removed += n
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan cache prune: %w", err)
	}

	logging.Info("Pruned %d scan cache entries for missing files", removed)
	return removed, nil
}

func (d *Database) missingPaths(ctx context.Context, exists func(string) bool) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT path FROM scan_cache")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Warn("failed to close rows: %v", err)
		}
	}()

	var missing []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		if !exists(path) {
			missing = append(missing, path)
		}
	}
	return missing, rows.Err()
}

// Count returns the number of cached fingerprints.
func (d *Database) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int64
	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scan_cache").Scan(&n)
	return n, err
}

// withTx runs fn in a transaction, committing on success.
func (d *Database) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}
