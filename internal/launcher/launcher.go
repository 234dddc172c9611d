// Package launcher validates, spawns and tracks external processes.
package launcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sevir/lanzadera/internal/cmdline"
	"github.com/sevir/lanzadera/pkg/models"
)

const defaultPollInterval = 50 * time.Millisecond

// Config holds launcher construction options.
type Config struct {
	Spawner  Spawner
	Registry Registry
	Trace    TraceSink
	// Debug wraps attached stream listeners in tracing decorators that
	// forward everything the process produces to the trace sink.
	Debug bool
	// PollInterval bounds the wait loop for process handles that expose
	// no done channel. Defaults to 50ms.
	PollInterval time.Duration
}

// Launcher spawns external processes, attaches output listeners and
// registers each launch. It is a thin client of its collaborators and
// introduces no locking of its own.
type Launcher struct {
	spawner  Spawner
	registry Registry
	trace    TraceSink
	debug    bool
	poll     time.Duration
}

// Options holds the per-launch optional inputs.
type Options struct {
	// WorkDir is the working directory for the process. Empty means the
	// current directory. If set, it must be an existing directory at
	// validation time; it is not re-checked after launch.
	WorkDir string
	// Env replaces the process environment when non-nil. When nil and
	// Config is set, the environment is resolved from Config; when both
	// are absent the process inherits the parent environment.
	Env map[string]string
	// Config optionally supplies the environment and display label.
	Config LaunchConfig
	// Out and Err receive stdout and stderr text. Either may be nil.
	Out StreamListener
	Err StreamListener
}

// New creates a Launcher.
func New(cfg Config) *Launcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Trace == nil {
		cfg.Trace = nopSink{}
	}
	if cfg.Registry == nil {
		cfg.Registry = nopRegistry{}
	}
	return &Launcher{
		spawner:  cfg.Spawner,
		registry: cfg.Registry,
		trace:    cfg.Trace,
		debug:    cfg.Debug,
		poll:     cfg.PollInterval,
	}
}

// Launch spawns a process and returns a handle to it. A nil launch with a
// nil error means the context was already canceled and nothing ran; this
// is the only non-error "did not run" outcome.
func (l *Launcher) Launch(ctx context.Context, command []string, opts Options) (*Launch, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: empty commands array", ErrInvalidArgument)
	}
	if opts.WorkDir != "" {
		info, err := os.Stat(opts.WorkDir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a valid directory", ErrInvalidArgument, opts.WorkDir)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	env := opts.Env
	if env == nil && opts.Config != nil {
		resolved, err := opts.Config.ResolveEnvironment()
		if err != nil {
			return nil, coreError("resolving launch environment", err)
		}
		env = resolved
	}

	if ctx.Err() != nil {
		return nil, nil
	}

	proc, err := l.spawner.Spawn(command, opts.WorkDir, env)
	if err != nil {
		return nil, coreError("spawning "+command[0], err)
	}

	rec, err := l.newRecord(command, opts)
	if err != nil {
		return nil, err
	}
	if p, ok := proc.(interface{ PID() int }); ok {
		rec.PID = p.PID()
	}

	launch := &Launch{Record: rec, Process: proc, Config: opts.Config}
	l.attachListeners(command, opts.Out, opts.Err, proc)
	l.registry.Register(launch)
	return launch, nil
}

// LaunchSync spawns a process and blocks until it terminates, returning
// its exit code. Exit code 0 with a nil error also covers the case where
// cancellation pre-empted the launch and nothing ran; callers that need
// to tell the two apart must check the context themselves.
func (l *Launcher) LaunchSync(ctx context.Context, command []string, opts Options) (int, error) {
	l.trace.Trace("sync execute command line:" + cmdline.Render(command))
	if ctx == nil {
		ctx = context.Background()
	}

	launch, err := l.Launch(ctx, command, opts)
	if err != nil {
		return 0, err
	}
	if launch == nil {
		return 0, nil
	}
	return l.wait(ctx, launch.Process)
}

// LaunchAsync spawns a process and returns without waiting for it. The
// process handle is discarded; the registry keeps the launch reachable.
func (l *Launcher) LaunchAsync(command []string, opts Options) error {
	l.trace.Trace("async execute command line:" + cmdline.Render(command))
	_, err := l.Launch(context.Background(), command, opts)
	return err
}

// LaunchSyncLine is LaunchSync with the command supplied as a single
// command-line string.
func (l *Launcher) LaunchSyncLine(ctx context.Context, commandLine string, opts Options) (int, error) {
	command, err := cmdline.Parse(commandLine)
	if err != nil {
		return 0, err
	}
	return l.LaunchSync(ctx, command, opts)
}

// LaunchAsyncLine is LaunchAsync with the command supplied as a single
// command-line string.
func (l *Launcher) LaunchAsyncLine(commandLine string, opts Options) error {
	command, err := cmdline.Parse(commandLine)
	if err != nil {
		return err
	}
	return l.LaunchAsync(command, opts)
}

// wait blocks until the process terminates or the context is canceled.
// Cancellation requests termination best-effort and then reads the exit
// value, which fails if the process has not truly exited yet.
func (l *Launcher) wait(ctx context.Context, proc Process) (int, error) {
	if w, ok := proc.(Waiter); ok {
		select {
		case <-w.Done():
		case <-ctx.Done():
			if err := proc.Terminate(); err != nil {
				l.trace.Log(SeverityInfo, "terminating process after cancellation", err)
			}
		}
		return proc.ExitValue()
	}

	// No done channel on this handle; fall back to a capped poll.
	for !proc.IsTerminated() {
		if ctx.Err() != nil {
			if err := proc.Terminate(); err != nil {
				l.trace.Log(SeverityInfo, "terminating process after cancellation", err)
			}
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(l.poll):
		}
	}
	return proc.ExitValue()
}

func (l *Launcher) newRecord(command []string, opts Options) (*models.LaunchRecord, error) {
	label := command[0]
	if opts.Config != nil {
		v, err := opts.Config.Attribute(AttrProcessLabel, command[0])
		if err != nil {
			return nil, coreError("reading launch label", err)
		}
		label = v
	}
	return &models.LaunchRecord{
		ID:          uuid.NewString(),
		Label:       label,
		ProcessType: command[0],
		CommandLine: cmdline.Render(command),
		WorkDir:     opts.WorkDir,
		Status:      models.LaunchStatusRunning,
		CreatedAt:   time.Now(),
	}, nil
}

// attachListeners wires the supplied listeners to the process streams.
// After attaching, each listener is primed with the stream contents
// accumulated so far, so output from processes that finish before the
// listener is in place is not lost.
func (l *Launcher) attachListeners(command []string, out, errL StreamListener, proc Process) {
	if l.debug {
		l.trace.Trace("creating tracing stream listeners for" + cmdline.Render(command))
		out = &tracingListener{delegate: out, sink: l.trace}
		errL = &tracingListener{delegate: errL, sink: l.trace}
	}

	if out != nil {
		mon := proc.OutputMonitor()
		mon.AddListener(out)
		out.Append(mon.Contents())
	}

	if errL != nil {
		mon := proc.ErrorMonitor()
		mon.AddListener(errL)
		errL.Append(mon.Contents())
	}
}

// tracingListener forwards received text to the trace sink in addition to
// the wrapped listener. The delegate may be nil, leaving a trace-only
// listener.
type tracingListener struct {
	delegate StreamListener
	sink     TraceSink
}

func (t *tracingListener) Append(text string) {
	t.sink.Trace(text)
	if t.delegate != nil {
		t.delegate.Append(text)
	}
}

type nopSink struct{}

func (nopSink) Trace(string)                {}
func (nopSink) Log(Severity, string, error) {}

type nopRegistry struct{}

func (nopRegistry) Register(*Launch) {}
