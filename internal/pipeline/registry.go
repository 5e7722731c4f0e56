// Package pipeline drives the asynchronous research run for one concept:
// search fan-out, validation, chunk construction and graph ingest, with
// cooperative cancellation and progress reporting.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

// Registry owns every Task record, keyed by opaque task id. Reads return
// snapshots; mutation happens only through Cancel (the cross-goroutine flag)
// and update (called by the single orchestrator goroutine owning the task).
// Records live until process exit; no TTL or eviction exists yet.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*types.Task
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*types.Task)}
}

// Create inserts a fresh pending task and returns a snapshot of it.
func (r *Registry) Create(concept string) types.Task {
	now := time.Now().UTC()
	task := &types.Task{
		TaskID:  "task-" + uuid.NewString(),
		Concept: concept,
		Status:  types.TaskPending,
		Progress: types.Progress{
			Overall:      0,
			CurrentStage: "pending",
			Stages:       map[string]types.StageStatus{},
		},
		GraphStatus: types.GraphPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.tasks[task.TaskID] = task
	r.mu.Unlock()
	return snapshot(task)
}

// Get returns a snapshot of the task, or false when the id is unknown.
func (r *Registry) Get(taskID string) (types.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return types.Task{}, false
	}
	return snapshot(task), true
}

// Cancel sets the cooperative cancellation flag. In-flight work is not
// preempted; the orchestrator observes the flag at the next stage boundary.
// Returns false for unknown ids and for tasks already in a terminal state.
func (r *Registry) Cancel(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok || isTerminal(task.Status) {
		return false
	}
	task.Cancelled = true
	task.UpdatedAt = time.Now().UTC()
	return true
}

// IsCancelled polls the cancellation flag. Safe to call at high frequency.
func (r *Registry) IsCancelled(taskID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	return ok && task.Cancelled
}

// update applies fn to the live record under the lock. Only the orchestrator
// goroutine that owns the task calls this.
func (r *Registry) update(taskID string, fn func(*types.Task)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return
	}
	fn(task)
	task.UpdatedAt = time.Now().UTC()
}

func isTerminal(s types.TaskStatus) bool {
	return s == types.TaskCompleted || s == types.TaskFailed || s == types.TaskCancelled
}

// snapshot deep-copies the mutable fields so readers never share maps or
// slices with the orchestrator goroutine.
func snapshot(t *types.Task) types.Task {
	out := *t
	out.Progress.Stages = make(map[string]types.StageStatus, len(t.Progress.Stages))
	for k, v := range t.Progress.Stages {
		out.Progress.Stages[k] = v
	}
	if t.Partial.ByDiscipline != nil {
		out.Partial.ByDiscipline = make(map[string]int, len(t.Partial.ByDiscipline))
		for k, v := range t.Partial.ByDiscipline {
			out.Partial.ByDiscipline[k] = v
		}
	}
	if t.ResultChunks != nil {
		out.ResultChunks = make([]types.Chunk, len(t.ResultChunks))
		copy(out.ResultChunks, t.ResultChunks)
	}
	return out
}
