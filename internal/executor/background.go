package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/pilot/internal/models"
)

// Queue runs tasks in the background as independent execution streams.
// Submit returns immediately; progress arrives through the task's callbacks.
// Steps within each task still run strictly sequentially — concurrency only
// exists between tasks.
type Queue struct {
	engine *Engine
	group  errgroup.Group
}

// NewQueue creates a background queue around the engine. limit bounds how
// many tasks run concurrently (0 = unlimited).
func NewQueue(engine *Engine, limit int) *Queue {
	q := &Queue{engine: engine}
	if limit > 0 {
		q.group.SetLimit(limit)
	}
	return q
}

// Submit hands a task to the queue and returns without waiting. When the
// concurrency limit is reached the task waits for a free slot.
func (q *Queue) Submit(ctx context.Context, task *models.Task, cb Callbacks) {
	q.group.Go(func() error {
		q.engine.ExecuteTask(ctx, task, cb)
		return nil
	})
}

// Wait blocks until every submitted task has finished.
func (q *Queue) Wait() {
	// Task outcomes are reported via callbacks and task status, never as
	// errors, so the group error is always nil.
	_ = q.group.Wait()
}
