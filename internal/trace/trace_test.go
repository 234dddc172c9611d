package trace

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/sevir/lanzadera/internal/launcher"
)

func newBufferSink(enabled bool) (*Sink, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewWithLogger(enabled, log.New(&buf, "", 0)), &buf
}

func TestTraceEnabled(t *testing.T) {
	sink, buf := newBufferSink(true)

	sink.Trace("spawning process")

	if !strings.Contains(buf.String(), `msg="spawning process"`) {
		t.Errorf("Expected trace output, got %q", buf.String())
	}
}

func TestTraceDisabled(t *testing.T) {
	sink, buf := newBufferSink(false)

	sink.Trace("should be dropped")

	if buf.Len() != 0 {
		t.Errorf("Expected no output when disabled, got %q", buf.String())
	}
}

func TestLogAlwaysWrites(t *testing.T) {
	sink, buf := newBufferSink(false)

	sink.Log(launcher.SeverityInfo, "waiting interrupted", errors.New("sleep interrupted"))

	got := buf.String()
	if !strings.Contains(got, "severity=info") {
		t.Errorf("Expected severity in output, got %q", got)
	}
	if !strings.Contains(got, `error="sleep interrupted"`) {
		t.Errorf("Expected error in output, got %q", got)
	}
}

func TestLogWithoutError(t *testing.T) {
	sink, buf := newBufferSink(true)

	sink.Log(launcher.SeverityWarning, "registry slow", nil)

	got := buf.String()
	if strings.Contains(got, "error=") {
		t.Errorf("Expected no error field, got %q", got)
	}
	if !strings.Contains(got, "severity=warning") {
		t.Errorf("Expected severity in output, got %q", got)
	}
}
