package launcher

import (
	"github.com/sevir/lanzadera/internal/cmdline"
)

// ErrInvalidArgument marks caller errors detected before any I/O: an empty
// command, or a working directory that is not an existing directory. Shared
// with cmdline so both entry points fail with the same sentinel.
var ErrInvalidArgument = cmdline.ErrInvalidArgument

// Severity classifies diagnostic and error output.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of a Severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// CoreError is an operational launch failure: environment resolution or
// the OS-level spawn itself. It carries a severity and an optional cause.
type CoreError struct {
	Severity Severity
	Msg      string
	Err      error
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Unwrap returns the underlying cause.
func (e *CoreError) Unwrap() error { return e.Err }

func coreError(msg string, err error) *CoreError {
	return &CoreError{Severity: SeverityError, Msg: msg, Err: err}
}
