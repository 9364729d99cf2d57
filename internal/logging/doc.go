// Package logging provides a simple leveled logging interface for the
// media scanner.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The initial level comes from the LOG_LEVEL (or DEBUG) environment variable.
// The scanner configuration may override it with SetLevel.
package logging
