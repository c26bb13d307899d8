// Package checkpoint implements the Checkpoint Manager: per-reviewer
// completion snapshots that let an interrupted review resume without
// re-running reviewers that already finished.
package checkpoint

import (
	"context"
	"sync"

	"github.com/turbowrap/turbowrap/pkg/issue"
	"github.com/turbowrap/turbowrap/pkg/loop"
)

// Checkpoint is a per-reviewer snapshot. Written exactly once per reviewer
// per task, at the moment that reviewer's LoopRun reaches a terminal
// convergence status. No partial-iteration checkpoints exist.
type Checkpoint struct {
	TaskID             string
	ReviewerName       string
	Completed          bool
	Issues             []issue.Issue
	SatisfactionScore  int
	IterationsUsed     int
	ConvergenceStatus  loop.Status
}

// Store is the subset of the persistence capability the Manager needs.
// Concrete Stores (e.g. pkg/store/pgstore) implement this alongside their
// other Task/FinalReport/FixReport persistence methods.
type Store interface {
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
	LoadCheckpoints(ctx context.Context, taskID string) (map[string]Checkpoint, error)
	ClearCheckpoints(ctx context.Context, taskID string) error
}

// Manager is the in-process façade over Store that orchestrators use.
type Manager struct {
	store Store
	mu    sync.Mutex
}

// NewManager returns a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Save persists a reviewer's completion snapshot. Callers must only call
// this once per reviewer per task, at terminal convergence.
func (m *Manager) Save(ctx context.Context, taskID, reviewerName string, result loop.Result, issues []issue.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	score := 0
	if len(result.History) > 0 {
		score = result.History[len(result.History)-1]
	}

	cloned := make([]issue.Issue, len(issues))
	for i, iss := range issues {
		cloned[i] = iss.Clone()
	}

	return m.store.SaveCheckpoint(ctx, Checkpoint{
		TaskID:            taskID,
		ReviewerName:      reviewerName,
		Completed:         true,
		Issues:            cloned,
		SatisfactionScore: score,
		IterationsUsed:    result.IterationsUsed,
		ConvergenceStatus: result.Status,
	})
}

// Load returns all saved checkpoints for taskID, keyed by reviewer name.
func (m *Manager) Load(ctx context.Context, taskID string) (map[string]Checkpoint, error) {
	return m.store.LoadCheckpoints(ctx, taskID)
}

// Clear removes all checkpoints for taskID, on terminal task completion.
func (m *Manager) Clear(ctx context.Context, taskID string) error {
	return m.store.ClearCheckpoints(ctx, taskID)
}
