package taskqueue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbowrap/turbowrap/pkg/taskqueue"
)

func TestDequeue_HighestPriorityFirst(t *testing.T) {
	q := taskqueue.New()
	q.Enqueue(&taskqueue.Task{ID: "low", Priority: 1})
	q.Enqueue(&taskqueue.Task{ID: "high", Priority: 9})
	q.Enqueue(&taskqueue.Task{ID: "mid", Priority: 5})

	require.Equal(t, "high", q.Dequeue().ID)
	require.Equal(t, "mid", q.Dequeue().ID)
	require.Equal(t, "low", q.Dequeue().ID)
	assert.Nil(t, q.Dequeue())
}

func TestDequeue_FIFOAmongEqualPriority(t *testing.T) {
	q := taskqueue.New()
	q.Enqueue(&taskqueue.Task{ID: "first", Priority: 5})
	q.Enqueue(&taskqueue.Task{ID: "second", Priority: 5})
	q.Enqueue(&taskqueue.Task{ID: "third", Priority: 5})

	assert.Equal(t, "first", q.Dequeue().ID)
	assert.Equal(t, "second", q.Dequeue().ID)
	assert.Equal(t, "third", q.Dequeue().ID)
}

func TestComplete_RemovesFromProcessing(t *testing.T) {
	q := taskqueue.New()
	q.Enqueue(&taskqueue.Task{ID: "a", Priority: 1})
	task := q.Dequeue()
	require.Equal(t, taskqueue.StateProcessing, task.State)

	q.Complete(task.ID)
	assert.Equal(t, taskqueue.StateCompleted, task.State)
	assert.Equal(t, 0, q.ProcessingCount())
}

func TestFail_RemovesFromProcessing(t *testing.T) {
	q := taskqueue.New()
	q.Enqueue(&taskqueue.Task{ID: "a", Priority: 1})
	task := q.Dequeue()

	q.Fail(task.ID)
	assert.Equal(t, taskqueue.StateFailed, task.State)
	assert.Equal(t, 0, q.ProcessingCount())
}

func TestDetectZombies_AgeThreshold(t *testing.T) {
	q := taskqueue.New()
	q.Enqueue(&taskqueue.Task{ID: "stale", Priority: 1})
	task := q.Dequeue()
	task.ProcessingStartedAt = time.Now().Add(-time.Hour)

	zombies := q.DetectZombies(30 * time.Minute)
	require.Len(t, zombies, 1)
	assert.Equal(t, "stale", zombies[0].ID)
}

func TestRequeue_IncrementsAttemptAndReturnsToQueue(t *testing.T) {
	q := taskqueue.New()
	q.Enqueue(&taskqueue.Task{ID: "z", Priority: 3})
	task := q.Dequeue()
	task.ProcessingStartedAt = time.Now().Add(-time.Hour)

	q.Requeue(task)

	assert.Equal(t, taskqueue.StateInQueue, task.State)
	assert.Equal(t, 1, task.Attempt)
	assert.Equal(t, 0, q.ProcessingCount())
	assert.Equal(t, 1, q.Len())
}

func TestConcurrentEnqueueDequeue_NoRaceNoLoss(t *testing.T) {
	q := taskqueue.New()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Enqueue(&taskqueue.Task{ID: "t", Priority: i % 5})
		}(i)
	}
	wg.Wait()

	count := 0
	for q.Dequeue() != nil {
		count++
	}
	assert.Equal(t, n, count)
}
