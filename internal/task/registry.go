package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// retention keeps finished tasks visible to polling clients for a
// while before Prune drops them.
const retention = 1 * time.Hour

type entry struct {
	snapshot Snapshot
	cancel   context.CancelFunc
	// onCancel best-effort terminates the in-flight extraction.
	onCancel func()
}

// Registry is the shared task table. One writer per task replaces its
// snapshot wholesale; any number of readers poll.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*entry)}
}

// Begin registers a new run and returns its id plus a context that is
// cancelled when the run is cancelled. The run starts in the starting
// state.
func (r *Registry) Begin(parent context.Context) (string, context.Context) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = &entry{
		snapshot: Snapshot{
			TaskID:    id,
			State:     StateStarting,
			StartedAt: time.Now(),
		},
		cancel: cancel,
	}
	return id, ctx
}

// SetOnCancel installs the best-effort process terminator for a run.
func (r *Registry) SetOnCancel(id string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.tasks[id]; ok {
		e.onCancel = fn
	}
}

// Update replaces the task's snapshot via mutate. The previous
// snapshot is passed in; the returned value is stored atomically.
// Updates to a cancelled task keep the cancelled state so a racing
// worker cannot resurrect a run the user already stopped.
func (r *Registry) Update(id string, mutate func(Snapshot) Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok {
		return
	}
	next := mutate(e.snapshot)
	if e.snapshot.State == StateCancelled {
		next.State = StateCancelled
	}
	if next.State.Terminal() && next.FinishedAt.IsZero() {
		next.FinishedAt = time.Now()
	}
	e.snapshot = next.withProgress()
}

// Get returns the current snapshot for id.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tasks[id]
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot, true
}

// Active returns the snapshots of all non-terminal runs.
func (r *Registry) Active() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Snapshot
	for _, e := range r.tasks {
		if !e.snapshot.State.Terminal() {
			out = append(out, e.snapshot)
		}
	}
	return out
}

// Cancel flips a running task to cancelled, cancels its context, and
// fires the process terminator. Returns false when the task is
// unknown or already terminal.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	e, ok := r.tasks[id]
	if !ok || e.snapshot.State.Terminal() {
		r.mu.Unlock()
		return false
	}
	s := e.snapshot
	s.State = StateCancelled
	s.Message = "indexing cancelled by user"
	s.FinishedAt = time.Now()
	e.snapshot = s.withProgress()
	cancel := e.cancel
	onCancel := e.onCancel
	r.mu.Unlock()

	cancel()
	if onCancel != nil {
		onCancel()
	}
	return true
}

// Prune drops terminal tasks older than the retention window.
func (r *Registry) Prune(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.tasks {
		s := e.snapshot
		if s.State.Terminal() && !s.FinishedAt.IsZero() && now.Sub(s.FinishedAt) > retention {
			delete(r.tasks, id)
		}
	}
}
