// Package database provides the SQLite-backed scan cache.
//
// The cache maps a file fingerprint (see scanner.Fingerprint) to the path it
// was computed for. A fingerprint that is present means that version of the
// file has already been scanned. Each path keeps only its latest fingerprint.
//
// A small metadata table records facts about past runs, such as when the
// last scan finished.
//
// The database uses WAL mode and includes automatic schema initialization.
package database
