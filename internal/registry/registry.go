// Package registry records launches for later inspection and persists
// their records.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sevir/lanzadera/internal/launcher"
	"github.com/sevir/lanzadera/pkg/models"
)

const saveInterval = 5 * time.Second

// Registry keeps every registered launch in memory and snapshots the
// launch records to a JSON file. Records from earlier runs are loaded at
// startup; their processes are gone, so still-running entries are marked
// terminated.
type Registry struct {
	path     string
	mu       sync.RWMutex
	records  map[string]*models.LaunchRecord
	launches map[string]*launcher.Launch
	dirty    bool
	closeCh  chan struct{}
	watchWg  sync.WaitGroup
}

// New creates a Registry persisting to path. An empty path keeps the
// registry in memory only.
func New(path string) (*Registry, error) {
	r := &Registry{
		path:     path,
		records:  make(map[string]*models.LaunchRecord),
		launches: make(map[string]*launcher.Launch),
		closeCh:  make(chan struct{}),
	}

	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create registry directory: %w", err)
		}
		if err := r.load(); err != nil {
			return nil, err
		}
		go r.backgroundSaver()
	}

	return r, nil
}

// Register records a launch. Fire-and-forget: errors while persisting are
// deferred to the background saver. If the process handle exposes a done
// channel, the record is updated when the process terminates.
func (r *Registry) Register(l *launcher.Launch) {
	r.mu.Lock()
	r.records[l.Record.ID] = l.Record
	r.launches[l.Record.ID] = l
	r.dirty = true
	r.mu.Unlock()

	if w, ok := l.Process.(launcher.Waiter); ok {
		r.watchWg.Add(1)
		go r.watch(l, w.Done())
	}
}

func (r *Registry) watch(l *launcher.Launch, done <-chan struct{}) {
	defer r.watchWg.Done()
	select {
	case <-done:
	case <-r.closeCh:
		return
	}

	now := time.Now()
	code, err := l.Process.ExitValue()

	r.mu.Lock()
	defer r.mu.Unlock()
	rec := l.Record
	if rec.CompletedAt == nil {
		rec.CompletedAt = &now
	}
	if err != nil {
		if !rec.IsTerminal() {
			rec.Status = models.LaunchStatusFailed
		}
		rec.Error = err.Error()
	} else {
		rec.ExitCode = &code
		// An explicit Terminate keeps its status; otherwise the exit
		// code decides.
		if !rec.IsTerminal() {
			if code == 0 {
				rec.Status = models.LaunchStatusCompleted
			} else {
				rec.Status = models.LaunchStatusFailed
			}
		}
	}
	r.dirty = true
}

// Get retrieves a launch by record ID.
func (r *Registry) Get(id string) (*launcher.Launch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, exists := r.launches[id]
	if !exists {
		return nil, fmt.Errorf("launch not found: %s", id)
	}
	return l, nil
}

// List retrieves launch records matching the filter, newest first.
func (r *Registry) List(filter models.ListRequest) ([]*models.LaunchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.LaunchRecord
	for _, rec := range r.records {
		if matchesFilter(rec, filter) {
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*models.LaunchRecord{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

func matchesFilter(rec *models.LaunchRecord, filter models.ListRequest) bool {
	if len(filter.Status) == 0 {
		return true
	}
	for _, s := range filter.Status {
		if rec.Status == s {
			return true
		}
	}
	return false
}

// Terminate requests termination of a registered launch's process and
// marks its record terminated.
func (r *Registry) Terminate(id string) error {
	l, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := l.Process.Terminate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !l.Record.IsTerminal() {
		l.Record.Status = models.LaunchStatusTerminated
		r.dirty = true
	}
	return nil
}

// Remove deletes a launch from the registry. Running launches cannot be
// removed.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[id]
	if !exists {
		return fmt.Errorf("launch not found: %s", id)
	}
	if rec.IsRunning() {
		return fmt.Errorf("launch still running: %s", id)
	}

	delete(r.records, id)
	delete(r.launches, id)
	r.dirty = true
	return nil
}

// Close stops the background saver, performs a final save and waits for
// completion watchers to exit.
func (r *Registry) Close() error {
	close(r.closeCh)
	r.watchWg.Wait()
	if r.path != "" {
		return r.save()
	}
	return nil
}

func (r *Registry) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read registry file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records map[string]*models.LaunchRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse registry file: %w", err)
	}

	// Processes from a previous run are gone.
	for _, rec := range records {
		if rec.IsRunning() {
			rec.Status = models.LaunchStatusTerminated
		}
	}
	r.records = records
	return nil
}

func (r *Registry) save() error {
	r.mu.RLock()
	data, err := json.MarshalIndent(r.records, "", "  ")
	r.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (r *Registry) backgroundSaver() {
	ticker := time.NewTicker(saveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mu.RLock()
			dirty := r.dirty
			r.mu.RUnlock()

			if dirty {
				if err := r.save(); err == nil {
					r.mu.Lock()
					r.dirty = false
					r.mu.Unlock()
				}
			}
		case <-r.closeCh:
			return
		}
	}
}
