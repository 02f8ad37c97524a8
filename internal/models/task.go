package models

import (
	"errors"
	"time"
)

// TaskStatus tracks a task through its lifecycle:
// planning -> in-progress -> completed | failed | cancelled.
type TaskStatus string

const (
	TaskPlanning   TaskStatus = "planning"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Task is the overall unit of planned work: an ordered sequence of steps plus
// plan-level insights. Created by the planner, mutated by the execution
// engine; the caller owns persistence and disposal.
type Task struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Request string      `json:"request"` // originating user request
	Context PlanContext `json:"context"`
	Steps   []Step      `json:"steps"`
	Status  TaskStatus  `json:"status"`

	Insights *PlanningInsights `json:"insights,omitempty"`

	// FailureMessage carries the last error for failed tasks and the
	// rejection reason for cancelled tasks.
	FailureMessage string `json:"failure_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Validate checks the task and all of its steps.
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.Request == "" {
		return errors.New("task request is required")
	}
	for i := range t.Steps {
		if err := t.Steps[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsTerminal reports whether the task has reached a final status.
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// CompletedSteps counts steps that finished successfully.
func (t *Task) CompletedSteps() int {
	n := 0
	for i := range t.Steps {
		if t.Steps[i].Status == StepCompleted {
			n++
		}
	}
	return n
}

// FailedStep returns the first failed step, or nil if none failed.
func (t *Task) FailedStep() *Step {
	for i := range t.Steps {
		if t.Steps[i].Status == StepFailed {
			return &t.Steps[i]
		}
	}
	return nil
}
