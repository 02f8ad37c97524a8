package models

import (
	"errors"
	"time"
)

// StepStatus tracks a step through its execution state machine:
// pending -> (awaiting-approval -> approved|rejected)? -> in-progress ->
// completed | failed | skipped.
type StepStatus string

const (
	StepPending           StepStatus = "pending"
	StepAwaitingApproval  StepStatus = "awaiting-approval"
	StepApproved          StepStatus = "approved"
	StepRejected          StepStatus = "rejected"
	StepInProgress        StepStatus = "in-progress"
	StepCompleted         StepStatus = "completed"
	StepFailed            StepStatus = "failed"
	StepSkipped           StepStatus = "skipped"
)

// Step is one unit of work inside a task. It is created by the planner and
// mutated only by the execution engine (status and result transitions).
type Step struct {
	ID          string `json:"id"`
	Index       int    `json:"index"` // 0-based position in the task
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      Action `json:"action"`

	// RequiresApproval gates dispatch behind an explicit approve/reject
	// decision. Set for destructive actions or when the caller requests
	// approval for every step.
	RequiresApproval bool `json:"requires_approval"`

	Status     StepStatus        `json:"status"`
	Confidence *ConfidenceRecord `json:"confidence,omitempty"`
	Fallbacks  []FallbackPlan    `json:"fallbacks,omitempty"`
	Result     *StepResult       `json:"result,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Validate checks that the step has the fields every step needs.
func (s *Step) Validate() error {
	if s.ID == "" {
		return errors.New("step id is required")
	}
	if s.Title == "" {
		return errors.New("step title is required")
	}
	if s.Action.Type == "" {
		return errors.New("step action type is required")
	}
	return nil
}

// IsTerminal reports whether the step has reached a final status.
func (s *Step) IsTerminal() bool {
	switch s.Status {
	case StepCompleted, StepFailed, StepSkipped, StepRejected:
		return true
	}
	return false
}

// HighRisk reports whether the step was classified high risk at planning time.
func (s *Step) HighRisk() bool {
	return s.Confidence != nil && s.Confidence.Risk == RiskHigh
}
