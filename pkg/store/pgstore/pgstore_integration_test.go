//go:build integration

package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turbowrap/turbowrap/pkg/checkpoint"
	"github.com/turbowrap/turbowrap/pkg/loop"
	"github.com/turbowrap/turbowrap/pkg/store/pgstore"
	"github.com/turbowrap/turbowrap/pkg/taskqueue"
)

// newTestStore spins up a disposable Postgres container (or uses
// CI_DATABASE_URL when present) the same way the upstream database layer's
// test helpers do, and returns a migrated pgstore.Store.
func newTestStore(t *testing.T) *pgstore.Store {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("CI_DATABASE_URL")
	if dsn == "" {
		container, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("turbowrap_test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	store, err := pgstore.New(ctx, pgstore.Config{DSN: dsn, MaxOpenConns: 5})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_TaskRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &taskqueue.Task{
		ID: "task-1", Kind: taskqueue.KindReview, Priority: 5,
		EnqueuedAt: time.Now().UTC().Truncate(time.Second), State: taskqueue.StateInQueue,
		Payload: map[string]any{"source": "dir"},
	}
	require.NoError(t, store.SaveTask(ctx, task))

	loaded, err := store.LoadTask(ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, task.ID, loaded.ID)
	require.Equal(t, task.Kind, loaded.Kind)
}

func TestStore_CheckpointRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cp := checkpoint.Checkpoint{
		TaskID: "task-2", ReviewerName: "reviewer_be_security", Completed: true,
		SatisfactionScore: 60, IterationsUsed: 2, ConvergenceStatus: loop.StatusThresholdMet,
	}
	require.NoError(t, store.SaveCheckpoint(ctx, cp))

	loaded, err := store.LoadCheckpoints(ctx, "task-2")
	require.NoError(t, err)
	require.Contains(t, loaded, "reviewer_be_security")

	require.NoError(t, store.ClearCheckpoints(ctx, "task-2"))
	loaded, err = store.LoadCheckpoints(ctx, "task-2")
	require.NoError(t, err)
	require.Empty(t, loaded)
}
