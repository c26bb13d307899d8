package review_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbowrap/turbowrap/pkg/aggregate"
	"github.com/turbowrap/turbowrap/pkg/checkpoint"
	"github.com/turbowrap/turbowrap/pkg/config"
	"github.com/turbowrap/turbowrap/pkg/invocation"
	"github.com/turbowrap/turbowrap/pkg/loop"
	"github.com/turbowrap/turbowrap/pkg/review"
)

type memCheckpointStore struct {
	mu sync.Mutex
	m  map[string]map[string]checkpoint.Checkpoint
}

func newMemCheckpointStore() *memCheckpointStore {
	return &memCheckpointStore{m: make(map[string]map[string]checkpoint.Checkpoint)}
}

func (s *memCheckpointStore) SaveCheckpoint(_ context.Context, cp checkpoint.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m[cp.TaskID] == nil {
		s.m[cp.TaskID] = make(map[string]checkpoint.Checkpoint)
	}
	s.m[cp.TaskID][cp.ReviewerName] = cp
	return nil
}

func (s *memCheckpointStore) LoadCheckpoints(_ context.Context, taskID string) (map[string]checkpoint.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]checkpoint.Checkpoint)
	for k, v := range s.m[taskID] {
		out[k] = v
	}
	return out, nil
}

func (s *memCheckpointStore) ClearCheckpoints(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, taskID)
	return nil
}

// singleCriticalInvoker has reviewer_be_security report one critical issue
// (every other role reports none) and the challenger score 55 — the
// single-critical-review scenario, where exactly one reviewer flags the issue.
type singleCriticalInvoker struct{}

func (singleCriticalInvoker) Invoke(_ context.Context, backend invocation.Backend, role, _ string, _ invocation.Options) (invocation.Invocation, error) {
	if backend == invocation.BackendPrimary {
		if role != "reviewer_be_security" {
			return invocation.Invocation{RawOutput: `{"issues": []}`}, nil
		}
		return invocation.Invocation{RawOutput: `{"issues": [{"file_path": "src/a.go", "start_line": 10, "severity": "critical", "category": "security", "message": "sql injection"}]}`}, nil
	}
	return invocation.Invocation{RawOutput: `{"satisfaction_score": 55, "feedback": "looks complete"}`}, nil
}

func TestReview_SingleCriticalScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))

	orch := &review.Orchestrator{
		Invoker:     singleCriticalInvoker{},
		Checkpoints: checkpoint.NewManager(newMemCheckpointStore()),
		Config:      config.DefaultConfig(),
	}

	final, err := orch.Review(context.Background(), review.Request{
		TaskID: "task-1",
		Source: review.Source{Dir: dir},
	})
	require.NoError(t, err)

	assert.Equal(t, 8.0, final.OverallScore)
	assert.Equal(t, aggregate.RecommendationRequestChanges, final.Recommendation)
	assert.False(t, final.Partial)
	require.Len(t, final.Issues, 1)
	assert.Equal(t, 60, final.Issues[0].Priority)
}

func TestReview_EmptySourceRunsGeneralReviewer(t *testing.T) {
	orch := &review.Orchestrator{
		Invoker:     singleCriticalInvoker{},
		Checkpoints: checkpoint.NewManager(newMemCheckpointStore()),
		Config:      config.DefaultConfig(),
	}

	// A source with no directory classifies as "other", which selects only
	// reviewer_general. Every repo type in the reviewer matrix selects at
	// least one role, so Review's zero-reviewer branch is not reached here;
	// this asserts the "other" path produces a non-partial report.
	final, err := orch.Review(context.Background(), review.Request{
		TaskID: "task-2",
		Source: review.Source{},
	})
	require.NoError(t, err)
	assert.False(t, final.Partial)
}

type failingInvoker struct{}

func (failingInvoker) Invoke(_ context.Context, _ invocation.Backend, _, _ string, _ invocation.Options) (invocation.Invocation, error) {
	return invocation.Invocation{}, fmt.Errorf("backend down")
}

func TestReview_ReviewerFailureMarksPartialButReturnsReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))

	orch := &review.Orchestrator{
		Invoker:     failingInvoker{},
		Checkpoints: checkpoint.NewManager(newMemCheckpointStore()),
		Config:      config.DefaultConfig(),
	}

	final, err := orch.Review(context.Background(), review.Request{
		TaskID: "task-3",
		Source: review.Source{Dir: dir},
	})
	require.NoError(t, err)
	assert.True(t, final.Partial)
	for _, s := range final.ReviewerSummaries {
		assert.True(t, s.Failed)
	}
	assert.Equal(t, 10.0, final.OverallScore)
	assert.Equal(t, aggregate.RecommendationApprove, final.Recommendation)
}

func TestReview_ResumeSkipsCheckpointedReviewers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))

	store := newMemCheckpointStore()
	require.NoError(t, store.SaveCheckpoint(context.Background(), checkpoint.Checkpoint{
		TaskID: "task-4", ReviewerName: "reviewer_be_security", Completed: true,
		SatisfactionScore: 60, IterationsUsed: 1, ConvergenceStatus: loop.StatusThresholdMet,
	}))

	var invoked []string
	var mu sync.Mutex
	trackingInvoker := trackInvoker{onInvoke: func(role string) {
		mu.Lock()
		defer mu.Unlock()
		invoked = append(invoked, role)
	}}

	orch := &review.Orchestrator{
		Invoker:     trackingInvoker,
		Checkpoints: checkpoint.NewManager(store),
		Config:      config.DefaultConfig(),
	}

	_, err := orch.Review(context.Background(), review.Request{
		TaskID: "task-4",
		Source: review.Source{Dir: dir},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, invoked, "reviewer_be_security")
}

type trackInvoker struct {
	onInvoke func(role string)
}

func (t trackInvoker) Invoke(_ context.Context, backend invocation.Backend, role, _ string, _ invocation.Options) (invocation.Invocation, error) {
	t.onInvoke(role)
	if backend == invocation.BackendPrimary {
		return invocation.Invocation{RawOutput: `{"issues": []}`}, nil
	}
	return invocation.Invocation{RawOutput: `{"satisfaction_score": 90, "feedback": "ok"}`}, nil
}
