package models

import "time"

// StepResult records the outcome of dispatching one step, including whether a
// fallback was substituted for the primary action.
type StepResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`

	// UsedFallback is true when the primary action failed and one of the
	// pre-generated fallbacks succeeded in its place. FallbackIndex is the
	// 0-based position of the winning fallback in the step's plan list.
	UsedFallback  bool   `json:"used_fallback"`
	FallbackIndex int    `json:"fallback_index,omitempty"`
	FallbackID    string `json:"fallback_id,omitempty"`

	// Attempts counts the primary dispatch plus every fallback tried.
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// ExecutionResult summarizes a finished task execution.
type ExecutionResult struct {
	TotalSteps  int
	Completed   int
	Failed      int
	Skipped     int
	Duration    time.Duration
	FinalStatus TaskStatus
	FailedSteps []Step
}
