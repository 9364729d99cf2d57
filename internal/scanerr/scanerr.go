// Package scanerr defines the error taxonomy shared by the buffer, the format
// parsers, the resampler and the scanner.
//
// Errors are classified by Kind rather than by Go type so that the scanner can
// decide, with a single switch, whether a failure is confined to one file or
// must end the whole scan.
package scanerr

import (
	"errors"
	"fmt"
)

// Kind classifies a scan failure.
type Kind int

const (
	// KindUnknown is used for errors that did not originate in this module.
	KindUnknown Kind = iota
	// KindInsufficientData means the buffer could not satisfy a read before EOF.
	KindInsufficientData
	// KindUnsupported means the input uses a valid but unimplemented variant
	// (BMP RLE, OS/2 headers, unknown container magic, ...).
	KindUnsupported
	// KindMalformed means a declared size or field contradicts the file.
	KindMalformed
	// KindAllocation means memory for a core buffer could not be obtained.
	KindAllocation
	// KindUnallocated is a precondition violation: a pixel buffer was used
	// before it was allocated.
	KindUnallocated
	// KindIO wraps open/stat/read failures of the underlying file.
	KindIO
)

// String returns the string representation of a kind
func (k Kind) String() string {
	switch k {
	case KindInsufficientData:
		return "insufficient_data"
	case KindUnsupported:
		return "unsupported"
	case KindMalformed:
		return "malformed"
	case KindAllocation:
		return "allocation"
	case KindUnallocated:
		return "unallocated"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Kinds lists every kind, used to pre-populate metric labels.
var Kinds = []Kind{
	KindUnknown, KindInsufficientData, KindUnsupported, KindMalformed,
	KindAllocation, KindUnallocated, KindIO,
}

// Error is a classified scan error.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "bmp: read header".
	Op string
	// Path is the file being scanned, when known.
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if e.Path != "" {
		return e.Path + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind with a plain message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Errorf returns an error of the given kind with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. If err already carries a kind, that kind is kept.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		kind = se.Kind
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithPath attaches a file path to err, classifying it as KindUnknown if it
// was not already a scan error.
func WithPath(err error, path string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		if se.Path == path {
			return err
		}
		return &Error{Kind: se.Kind, Path: path, Err: err}
	}
	return &Error{Kind: KindUnknown, Path: path, Err: err}
}

// KindOf returns the kind of the outermost scan error in err's chain.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFatal reports whether err must end the whole scan rather than only the
// current file.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindAllocation, KindUnallocated:
		return true
	default:
		return false
	}
}
