// Package taskqueue implements the in-memory priority task queue: strict
// higher-priority-first ordering with FIFO among equal priorities, safe for
// concurrent Enqueue/Dequeue/Complete/Fail, plus wall-clock zombie
// detection. Durability is the Store's responsibility, not the queue's.
package taskqueue

import (
	"container/heap"
	"sync"
	"time"
)

// Kind identifies what a Task represents.
type Kind string

const (
	KindReview Kind = "review"
	KindFix    Kind = "fix"
)

// State is a Task's lifecycle position.
type State string

const (
	StatePending    State = "pending"
	StateInQueue    State = "in-queue"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Task is a unit of queued work.
type Task struct {
	ID                 string
	Kind               Kind
	Payload            any
	Priority           int
	EnqueuedAt         time.Time
	State              State
	ProcessingStartedAt time.Time
	Attempt            int

	seq   int // insertion sequence, for FIFO among equal priority
	index int // heap.Interface bookkeeping
}

// heapSlice implements container/heap's ordering: higher priority first,
// then lower sequence number (earlier insertion) first.
type heapSlice []*Task

func (h heapSlice) Len() int { return len(h) }
func (h heapSlice) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h heapSlice) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *heapSlice) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *heapSlice) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Queue is the concurrency-safe priority queue. The zero value is not
// usable; construct with New.
type Queue struct {
	mu         sync.Mutex
	pending    heapSlice
	processing map[string]*Task
	nextSeq    int
	nowFn      func() time.Time
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{processing: make(map[string]*Task), nowFn: time.Now}
}

// Enqueue transitions task pending -> in-queue and inserts it into the heap.
// O(log n).
func (q *Queue) Enqueue(task *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task.State = StateInQueue
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = q.nowFn()
	}
	task.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.pending, task)
}

// Dequeue pops the highest-priority in-queue task, transitioning it to
// processing and stamping its start time. Returns nil if the queue is empty.
func (q *Queue) Dequeue() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending.Len() == 0 {
		return nil
	}
	task := heap.Pop(&q.pending).(*Task)
	task.State = StateProcessing
	task.ProcessingStartedAt = q.nowFn()
	q.processing[task.ID] = task
	return task
}

// Complete transitions a processing task to completed and removes it from
// the processing set. No-op if id is not currently processing.
func (q *Queue) Complete(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if task, ok := q.processing[id]; ok {
		task.State = StateCompleted
		delete(q.processing, id)
	}
}

// Fail transitions a processing task to failed and removes it from the
// processing set. No-op if id is not currently processing.
func (q *Queue) Fail(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if task, ok := q.processing[id]; ok {
		task.State = StateFailed
		delete(q.processing, id)
	}
}

// DetectZombies returns processing tasks whose processing start time is
// older than age by wall clock. The caller decides policy (requeue or
// terminal-fail); this call has no side effects.
func (q *Queue) DetectZombies(age time.Duration) []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.nowFn()
	var zombies []*Task
	for _, task := range q.processing {
		if now.Sub(task.ProcessingStartedAt) > age {
			zombies = append(zombies, task)
		}
	}
	return zombies
}

// Requeue resets a zombie task to in-queue, incrementing its attempt count
// and preserving its priority. It takes a fresh insertion sequence, so it
// is dequeued after every task of the same priority already in the queue.
func (q *Queue) Requeue(task *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.processing, task.ID)
	task.Attempt++
	task.State = StateInQueue
	task.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.pending, task)
}

// Len returns the number of tasks currently in-queue (not processing).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// ProcessingCount returns the number of tasks currently processing.
func (q *Queue) ProcessingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.processing)
}
