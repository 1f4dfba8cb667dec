// Package task tracks ingestion runs: a task-id-keyed registry of
// progress snapshots with cooperative cancellation, and the line
// monitor that turns the ingester's per-file output into progress
// updates.
package task

import "time"

// State is the lifecycle phase of one ingestion run.
type State string

const (
	// StateStarting means the run is counting files before any
	// document is processed.
	StateStarting State = "starting"
	// StateRunning means documents are being processed.
	StateRunning State = "running"
	// StateCompleted is the terminal success state.
	StateCompleted State = "completed"
	// StateCancelled is the terminal state after a cancel request.
	StateCancelled State = "cancelled"
	// StateError is the terminal failure state.
	StateError State = "error"
)

// Terminal reports whether no further updates can follow.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateError
}

// Snapshot is one immutable view of a run's progress. Readers may see
// a slightly stale snapshot, never a partially-written one.
type Snapshot struct {
	TaskID      string    `json:"task_id"`
	State       State     `json:"status"`
	Total       int       `json:"total"`
	Current     int       `json:"current"`
	ProgressPct int       `json:"progress"`
	Indexed     int       `json:"indexed"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// withProgress derives the percentage from current/total.
func (s Snapshot) withProgress() Snapshot {
	if s.Total > 0 {
		s.ProgressPct = s.Current * 100 / s.Total
	}
	if s.State == StateCompleted {
		s.ProgressPct = 100
	}
	return s
}
