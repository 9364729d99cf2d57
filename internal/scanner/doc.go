// Package scanner walks media roots and turns every media file into one
// event on an events.Queue.
//
// A Scanner runs in one of two modes:
//
//   - Synchronous (Run): the walk runs on the caller's goroutine and pending
//     events are handed to the caller's handler after every file.
//   - Asynchronous (Start): a single producer goroutine walks the roots and
//     the caller drains the queue with Drain or its own ProcessPending loop.
//
// Each file is fingerprinted from its path, modification time and size. When
// a Cache already holds the fingerprint the file is skipped. Cancellation is
// cooperative: Abort and context cancellation take effect between files,
// never inside one file's decode. Errors of a fatal kind (see scanerr.IsFatal)
// end the whole scan; every other failure is reported for its file and the
// walk continues.
//
// Watch keeps the roots under an fsnotify watcher after the initial scan and
// scans files as they are created or rewritten.
package scanner
