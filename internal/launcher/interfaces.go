package launcher

import (
	"github.com/sevir/lanzadera/pkg/models"
)

// AttrProcessLabel is the launch-configuration attribute holding the
// human-readable label for a launched process.
const AttrProcessLabel = "process_label"

// StreamListener receives newly produced text from a process stream.
// Listeners are invoked from the stream-monitoring goroutines and must be
// safe to call from there.
type StreamListener interface {
	Append(text string)
}

// ListenerFunc adapts a plain function to a StreamListener.
type ListenerFunc func(text string)

// Append implements StreamListener.
func (f ListenerFunc) Append(text string) { f(text) }

// StreamMonitor observes one output stream of a spawned process. Contents
// returns everything produced so far, so a listener attached late can be
// primed with the text it missed.
type StreamMonitor interface {
	AddListener(l StreamListener)
	Contents() string
}

// Process is the launcher's handle on a spawned OS process.
type Process interface {
	IsTerminated() bool
	Terminate() error
	// ExitValue fails if the process has not yet terminated.
	ExitValue() (int, error)
	OutputMonitor() StreamMonitor
	ErrorMonitor() StreamMonitor
}

// Waiter is an optional Process extension. Handles that expose a done
// channel get a blocking wait instead of the polling fallback.
type Waiter interface {
	Done() <-chan struct{}
}

// Spawner is the OS process-launch primitive. A nil env inherits the
// parent environment; a non-nil env replaces it.
type Spawner interface {
	Spawn(command []string, dir string, env map[string]string) (Process, error)
}

// Registry records launches for later inspection. Register is
// fire-and-forget; no response is awaited.
type Registry interface {
	Register(l *Launch)
}

// TraceSink is the process-wide diagnostic output. Implementations never
// propagate failures.
type TraceSink interface {
	Trace(msg string)
	Log(severity Severity, msg string, err error)
}

// LaunchConfig optionally supplies an environment and a display label for
// a launch. Both operations may fail on internal resolution errors.
type LaunchConfig interface {
	Attribute(key, def string) (string, error)
	ResolveEnvironment() (map[string]string, error)
}

// Launch ties a launched process to its record and the configuration it
// was launched from. The registry owns it once registered.
type Launch struct {
	Record  *models.LaunchRecord
	Process Process
	Config  LaunchConfig
}
