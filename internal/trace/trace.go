// Package trace implements the diagnostic trace sink on the standard logger.
package trace

import (
	"log"

	"github.com/sevir/lanzadera/internal/launcher"
)

// Sink writes diagnostic output as key=value log lines. Trace messages
// are dropped unless the sink was created enabled; Log messages always go
// through. Failures never propagate to callers.
type Sink struct {
	enabled bool
	logger  *log.Logger
}

// New creates a Sink on the default logger.
func New(enabled bool) *Sink {
	return NewWithLogger(enabled, log.Default())
}

// NewWithLogger creates a Sink writing to the given logger.
func NewWithLogger(enabled bool, logger *log.Logger) *Sink {
	return &Sink{enabled: enabled, logger: logger}
}

// Trace writes a debug trace message when the sink is enabled.
func (s *Sink) Trace(msg string) {
	if !s.enabled {
		return
	}
	s.logger.Printf("trace_event=trace msg=%q", msg)
}

// Log writes a diagnostic message with a severity and optional cause.
func (s *Sink) Log(severity launcher.Severity, msg string, err error) {
	if err != nil {
		s.logger.Printf("trace_event=log severity=%s msg=%q error=%q", severity, msg, err)
		return
	}
	s.logger.Printf("trace_event=log severity=%s msg=%q", severity, msg)
}
