package executor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harrison/pilot/internal/models"
)

func TestQueueRunsAllTasks(t *testing.T) {
	d := newScriptedDispatcher()
	engine := NewEngine(d, Options{})
	queue := NewQueue(engine, 2)

	var mu sync.Mutex
	var completed []string

	tasks := []*models.Task{
		newTask(readFileStep("task a step", "a.txt")),
		newTask(readFileStep("task b step", "b.txt")),
		newTask(readFileStep("task c step", "c.txt")),
	}
	for _, task := range tasks {
		queue.Submit(context.Background(), task, Callbacks{
			OnTaskComplete: func(task *models.Task) {
				mu.Lock()
				completed = append(completed, task.ID)
				mu.Unlock()
			},
		})
	}
	queue.Wait()

	assert.Len(t, completed, 3, "every submitted task completes")
	for _, task := range tasks {
		assert.Equal(t, models.TaskCompleted, task.Status)
	}
}

func TestQueueUnlimitedConcurrency(t *testing.T) {
	d := newScriptedDispatcher()
	engine := NewEngine(d, Options{})
	queue := NewQueue(engine, 0)

	task := newTask(readFileStep("only step", "a.txt"))
	queue.Submit(context.Background(), task, Callbacks{})
	queue.Wait()

	assert.Equal(t, models.TaskCompleted, task.Status)
}
