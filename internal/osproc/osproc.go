// Package osproc implements the launcher collaborators on top of os/exec.
package osproc

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/sevir/lanzadera/internal/launcher"
)

const (
	defaultGracePeriod = 5 * time.Second
	killWait           = time.Second
	maxBufferCapture   = 1024 * 1024 // 1MB max buffered output per stream
)

// Spawner launches OS processes and wraps them as launcher.Process
// handles with buffering stream monitors.
type Spawner struct {
	grace time.Duration
}

// NewSpawner creates a Spawner. grace bounds how long Terminate waits
// after SIGTERM before force-killing.
func NewSpawner(grace time.Duration) *Spawner {
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	return &Spawner{grace: grace}
}

// Spawn starts the given command. A nil env inherits the parent
// environment; a non-nil env replaces it entirely.
func (s *Spawner) Spawn(command []string, dir string, env map[string]string) (launcher.Process, error) {
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = flattenEnv(env)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", command[0], err)
	}

	p := &Process{
		cmd:   cmd,
		out:   &Monitor{},
		errm:  &Monitor{},
		done:  make(chan struct{}),
		grace: s.grace,
	}
	go p.run(stdout, stderr)
	return p, nil
}

func flattenEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(env))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// Monitor buffers the text produced on one process stream and fans it out
// to attached listeners.
type Monitor struct {
	mu        sync.Mutex
	buf       []byte
	listeners []launcher.StreamListener
}

// AddListener attaches a listener for subsequently produced text.
func (m *Monitor) AddListener(l launcher.StreamListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Contents returns the text produced so far.
func (m *Monitor) Contents() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.buf)
}

func (m *Monitor) append(text string) {
	m.mu.Lock()
	if len(m.buf) < maxBufferCapture {
		m.buf = append(m.buf, text...)
	}
	ls := make([]launcher.StreamListener, len(m.listeners))
	copy(ls, m.listeners)
	m.mu.Unlock()

	for _, l := range ls {
		l.Append(text)
	}
}

// Process is a running OS process with monitored output streams.
type Process struct {
	cmd   *exec.Cmd
	out   *Monitor
	errm  *Monitor
	done  chan struct{}
	grace time.Duration

	mu       sync.Mutex
	exitCode int
	waitErr  error
}

func (p *Process) run(stdout, stderr io.ReadCloser) {
	var wg sync.WaitGroup
	wg.Add(2)
	go p.capture(&wg, stdout, p.out)
	go p.capture(&wg, stderr, p.errm)
	wg.Wait()

	err := p.cmd.Wait()

	p.mu.Lock()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.exitCode = exitErr.ExitCode()
		} else {
			p.waitErr = err
		}
	}
	p.mu.Unlock()
	close(p.done)
}

func (p *Process) capture(wg *sync.WaitGroup, r io.ReadCloser, m *Monitor) {
	defer wg.Done()
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			m.append(string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

// IsTerminated reports whether the process has exited.
func (p *Process) IsTerminated() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the process has exited and its
// output has been fully captured.
func (p *Process) Done() <-chan struct{} { return p.done }

// PID returns the OS process id.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Terminate stops the process: SIGTERM first, then a kill if it has not
// exited within the grace period. Best-effort; a process that ignores
// both leaves Terminate returning after the kill wait.
func (p *Process) Terminate() error {
	if p.IsTerminated() || p.cmd.Process == nil {
		return nil
	}

	p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
		return nil
	case <-time.After(p.grace):
	}

	if err := p.cmd.Process.Kill(); err != nil && !p.IsTerminated() {
		return fmt.Errorf("failed to kill process %d: %w", p.PID(), err)
	}
	select {
	case <-p.done:
	case <-time.After(killWait):
	}
	return nil
}

// ExitValue returns the exit code. It fails if the process has not yet
// terminated or if waiting on it failed for a reason other than a
// non-zero exit.
func (p *Process) ExitValue() (int, error) {
	select {
	case <-p.done:
	default:
		return 0, fmt.Errorf("process %d has not terminated", p.PID())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.waitErr != nil {
		return 0, p.waitErr
	}
	return p.exitCode, nil
}

// OutputMonitor returns the stdout monitor.
func (p *Process) OutputMonitor() launcher.StreamMonitor { return p.out }

// ErrorMonitor returns the stderr monitor.
func (p *Process) ErrorMonitor() launcher.StreamMonitor { return p.errm }
