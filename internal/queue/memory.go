package queue

import (
	"context"
	"sync"

	"shelfwatch/internal/model"
)

// MemoryQueue is an in-process assessment queue used in tests and dry runs.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks []model.ReviewTask
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Enqueue appends a task.
func (q *MemoryQueue) Enqueue(_ context.Context, task *model.ReviewTask) error {
	stampTask(task)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, *task)
	return nil
}

// Tasks returns a copy of the enqueued tasks in order.
func (q *MemoryQueue) Tasks() []model.ReviewTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]model.ReviewTask, len(q.tasks))
	copy(out, q.tasks)
	return out
}
