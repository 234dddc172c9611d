package registry

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sevir/lanzadera/internal/launcher"
	"github.com/sevir/lanzadera/pkg/models"
)

type stubProcess struct {
	mu         sync.Mutex
	terminated bool
	exit       int
	termCalls  int
	done       chan struct{}
}

func newStubProcess() *stubProcess {
	return &stubProcess{done: make(chan struct{})}
}

func (p *stubProcess) IsTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

func (p *stubProcess) Terminate() error {
	p.mu.Lock()
	p.termCalls++
	already := p.terminated
	p.terminated = true
	p.mu.Unlock()
	if !already {
		close(p.done)
	}
	return nil
}

func (p *stubProcess) ExitValue() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.terminated {
		return 0, errors.New("not terminated")
	}
	return p.exit, nil
}

func (p *stubProcess) OutputMonitor() launcher.StreamMonitor { return nil }
func (p *stubProcess) ErrorMonitor() launcher.StreamMonitor  { return nil }
func (p *stubProcess) Done() <-chan struct{}                 { return p.done }

func (p *stubProcess) finish(exit int) {
	p.mu.Lock()
	p.terminated = true
	p.exit = exit
	p.mu.Unlock()
	close(p.done)
}

func newLaunch(id string, proc launcher.Process) *launcher.Launch {
	return &launcher.Launch{
		Record: &models.LaunchRecord{
			ID:        id,
			Label:     id,
			Status:    models.LaunchStatusRunning,
			CreatedAt: time.Now(),
		},
		Process: proc,
	}
}

func TestRegisterAndGet(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer r.Close()

	proc := newStubProcess()
	r.Register(newLaunch("launch-1", proc))

	l, err := r.Get("launch-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if l.Record.ID != "launch-1" {
		t.Errorf("Expected launch-1, got %s", l.Record.ID)
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("Expected error for unknown launch")
	}
	proc.finish(0)
}

func TestWatchUpdatesRecordOnCompletion(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer r.Close()

	proc := newStubProcess()
	l := newLaunch("launch-1", proc)
	r.Register(l)

	proc.finish(3)

	deadline := time.Now().Add(5 * time.Second)
	for {
		r.mu.RLock()
		terminal := l.Record.IsTerminal()
		r.mu.RUnlock()
		if terminal {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for record update")
		}
		time.Sleep(5 * time.Millisecond)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if l.Record.Status != models.LaunchStatusFailed {
		t.Errorf("Expected failed status for exit 3, got %s", l.Record.Status)
	}
	if l.Record.ExitCode == nil || *l.Record.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %v", l.Record.ExitCode)
	}
	if l.Record.CompletedAt == nil {
		t.Error("Expected completion time to be set")
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer r.Close()

	older := newLaunch("older", newStubProcess())
	older.Record.CreatedAt = time.Now().Add(-time.Hour)
	older.Record.Status = models.LaunchStatusCompleted
	newer := newLaunch("newer", newStubProcess())
	r.Register(older)
	r.Register(newer)

	all, err := r.List(models.ListRequest{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 2 || all[0].ID != "newer" {
		t.Errorf("Expected newest-first listing, got %v", all)
	}

	running, err := r.List(models.ListRequest{Status: []models.LaunchStatus{models.LaunchStatusRunning}})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(running) != 1 || running[0].ID != "newer" {
		t.Errorf("Expected only the running launch, got %v", running)
	}
}

func TestTerminate(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer r.Close()

	proc := newStubProcess()
	r.Register(newLaunch("launch-1", proc))

	if err := r.Terminate("launch-1"); err != nil {
		t.Fatalf("Terminate returned error: %v", err)
	}
	if proc.termCalls != 1 {
		t.Errorf("Expected one Terminate call on the process, got %d", proc.termCalls)
	}
}

func TestRemove(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer r.Close()

	proc := newStubProcess()
	r.Register(newLaunch("launch-1", proc))

	if err := r.Remove("launch-1"); err == nil {
		t.Error("Expected error removing a running launch")
	}

	proc.finish(0)
	deadline := time.Now().Add(5 * time.Second)
	for {
		r.mu.RLock()
		terminal := func() bool {
			rec, ok := r.records["launch-1"]
			return ok && rec.IsTerminal()
		}()
		r.mu.RUnlock()
		if terminal {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for completion")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := r.Remove("launch-1"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := r.Get("launch-1"); err == nil {
		t.Error("Expected launch to be gone")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launches.json")

	r, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}

	proc := newStubProcess()
	r.Register(newLaunch("persisted", proc))
	proc.finish(0)
	if err := r.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("Failed to reopen registry: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.List(models.ListRequest{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(records) != 1 || records[0].ID != "persisted" {
		t.Fatalf("Expected persisted record, got %v", records)
	}
	if records[0].IsRunning() {
		t.Error("Expected stale running record to be marked terminated on load")
	}
}
