// Package executor walks a planned task step by step, dispatching actions to
// an external executor, substituting pre-generated fallbacks on failure, and
// gating risky steps behind approval. Steps within one task always run
// strictly sequentially; separate tasks may run as independent streams.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harrison/pilot/internal/actions"
	"github.com/harrison/pilot/internal/models"
)

// FailurePolicy controls what happens when a step fails after exhausting its
// fallbacks.
type FailurePolicy string

const (
	// PolicyHalt fails the whole task on the first failed step (default).
	PolicyHalt FailurePolicy = "halt"

	// PolicySkip records the failure and continues with the next step.
	PolicySkip FailurePolicy = "skip"
)

// Dispatcher routes an action payload to whatever actually performs it.
type Dispatcher interface {
	Dispatch(ctx context.Context, action models.Action) actions.Result
}

// PatternRecorder receives successful step outcomes so future plans benefit.
type PatternRecorder interface {
	Store(ctx context.Context, step *models.Step, result *models.StepResult, taskContext map[string]string) error
}

// Approver resolves an approval gate with a single boolean decision. The
// call blocks until the decision is made; there is no timeout unless the
// caller imposes one through ctx.
type Approver interface {
	RequestApproval(ctx context.Context, task *models.Task, step *models.Step) (bool, error)
}

// ApproverFunc adapts a function to the Approver interface.
type ApproverFunc func(ctx context.Context, task *models.Task, step *models.Step) (bool, error)

// RequestApproval calls f.
func (f ApproverFunc) RequestApproval(ctx context.Context, task *models.Task, step *models.Step) (bool, error) {
	return f(ctx, task, step)
}

// Logger is the minimal logging surface the engine needs.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// Callbacks deliver execution progress to the caller. All fields are
// optional; nil callbacks are skipped.
type Callbacks struct {
	OnStepStart            func(step *models.Step)
	OnStepComplete         func(step *models.Step, result *models.StepResult)
	OnStepError            func(step *models.Step, err error)
	OnStepApprovalRequired func(step *models.Step)
	OnTaskProgress         func(completed, total int)
	OnTaskComplete         func(task *models.Task)
	OnTaskError            func(task *models.Task, err error)
}

// Options configures an Engine.
type Options struct {
	// Patterns receives successful outcomes (optional).
	Patterns PatternRecorder

	// Approver resolves approval gates. With no approver, gated steps are
	// rejected: execution never assumes consent.
	Approver Approver

	// OnFailure selects the failure policy (default PolicyHalt).
	OnFailure FailurePolicy

	// Logger for progress and warnings (optional).
	Logger Logger
}

// Engine executes planned tasks. Pause, Resume, and Cancel apply to every
// task the engine is currently running; both are checked at step boundaries
// only, so an in-flight action always runs to completion.
type Engine struct {
	dispatcher Dispatcher
	patterns   PatternRecorder
	approver   Approver
	policy     FailurePolicy
	log        Logger
	now        func() time.Time

	mu        sync.Mutex
	resume    chan struct{} // non-nil while paused
	cancelled bool
}

// NewEngine creates an engine around the given dispatcher.
func NewEngine(dispatcher Dispatcher, opts Options) *Engine {
	if dispatcher == nil {
		panic("dispatcher cannot be nil")
	}
	policy := opts.OnFailure
	if policy == "" {
		policy = PolicyHalt
	}
	return &Engine{
		dispatcher: dispatcher,
		patterns:   opts.Patterns,
		approver:   opts.Approver,
		policy:     policy,
		log:        opts.Logger,
		now:        time.Now,
	}
}

// Pause suspends dispatch between steps. The step currently in flight
// completes; no subsequent step dispatches until Resume.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resume == nil {
		e.resume = make(chan struct{})
	}
}

// Resume lifts a pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resume != nil {
		close(e.resume)
		e.resume = nil
	}
}

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resume != nil
}

// Cancel requests cooperative cancellation. It is honored at the next step
// boundary; a mid-flight action finishes and its result is discarded. Cancel
// also releases any pause so paused tasks can observe the cancellation.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.cancelled = true
	resume := e.resume
	e.resume = nil
	e.mu.Unlock()

	if resume != nil {
		close(resume)
	}
}

func (e *Engine) isCancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

// waitIfPaused blocks between steps while the engine is paused.
func (e *Engine) waitIfPaused(ctx context.Context) error {
	for {
		e.mu.Lock()
		resume := e.resume
		e.mu.Unlock()
		if resume == nil {
			return nil
		}
		select {
		case <-resume:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ExecuteTask walks the task's steps in order and returns the fully updated
// task. Outcomes are reported through the task's status and step results, not
// through an error return; the engine does not persist the task.
func (e *Engine) ExecuteTask(ctx context.Context, task *models.Task, cb Callbacks) *models.Task {
	if task == nil {
		return nil
	}

	start := e.now()
	task.Status = models.TaskInProgress
	task.StartedAt = &start

	taskContext := task.Context.Fields()
	total := len(task.Steps)

	for i := range task.Steps {
		step := &task.Steps[i]
		if step.IsTerminal() {
			continue
		}

		if err := e.waitIfPaused(ctx); err != nil || e.isCancelled() || ctx.Err() != nil {
			e.cancelTask(task, i, "execution cancelled")
			break
		}

		if step.RequiresApproval && !e.approveStep(ctx, task, step, cb) {
			// Rejection is a deliberate cancellation, not an error.
			e.cancelTask(task, i+1, fmt.Sprintf("step %q rejected", step.Title))
			break
		}

		stepStart := e.now()
		step.Status = models.StepInProgress
		step.StartedAt = &stepStart
		if cb.OnStepStart != nil {
			cb.OnStepStart(step)
		}
		e.logDebug(fmt.Sprintf("step %d/%d: %s", i+1, total, step.Action.Summary()))

		result := e.runStep(ctx, step)

		if e.isCancelled() {
			// The in-flight action was allowed to finish; its result is
			// discarded rather than reported.
			step.Status = models.StepSkipped
			step.StartedAt = nil
			e.cancelTask(task, i+1, "execution cancelled")
			break
		}

		stepEnd := e.now()
		step.Result = &result
		step.CompletedAt = &stepEnd

		if result.Success {
			step.Status = models.StepCompleted
			if cb.OnStepComplete != nil {
				cb.OnStepComplete(step, &result)
			}
			if cb.OnTaskProgress != nil {
				cb.OnTaskProgress(task.CompletedSteps(), total)
			}
			e.reportSuccess(ctx, step, &result, taskContext)
			continue
		}

		step.Status = models.StepFailed
		if cb.OnStepError != nil {
			cb.OnStepError(step, errors.New(result.Error))
		}
		e.logWarn(fmt.Sprintf("step %q failed after %d attempts: %s", step.Title, result.Attempts, result.Error))

		if e.policy == PolicyHalt {
			task.Status = models.TaskFailed
			task.FailureMessage = fmt.Sprintf("step %d (%s) failed: %s", i+1, step.Title, result.Error)
			e.skipRemaining(task, i+1)
			break
		}
	}

	if task.Status == models.TaskInProgress {
		task.Status = models.TaskCompleted
	}
	end := e.now()
	task.CompletedAt = &end

	summary := e.aggregate(task, end.Sub(start))
	e.logInfo(fmt.Sprintf("task %q finished: %s, %d/%d steps completed in %s",
		task.Title, task.Status, summary.Completed, summary.TotalSteps, summary.Duration.Round(time.Millisecond)))

	switch task.Status {
	case models.TaskFailed:
		if cb.OnTaskError != nil {
			cb.OnTaskError(task, errors.New(task.FailureMessage))
		}
	default:
		if cb.OnTaskComplete != nil {
			cb.OnTaskComplete(task)
		}
	}

	return task
}

// approveStep runs the approval gate for one step and reports the decision.
func (e *Engine) approveStep(ctx context.Context, task *models.Task, step *models.Step, cb Callbacks) bool {
	step.Status = models.StepAwaitingApproval
	if cb.OnStepApprovalRequired != nil {
		cb.OnStepApprovalRequired(step)
	}

	if e.approver == nil {
		e.logWarn(fmt.Sprintf("step %q requires approval but no approver is configured; rejecting", step.Title))
		step.Status = models.StepRejected
		return false
	}

	approved, err := e.approver.RequestApproval(ctx, task, step)
	if err != nil {
		e.logWarn(fmt.Sprintf("approval for step %q failed: %v; treating as rejection", step.Title, err))
		approved = false
	}
	if !approved {
		step.Status = models.StepRejected
		return false
	}
	step.Status = models.StepApproved
	return true
}

// runStep dispatches the primary action and, on failure, each fallback in
// listed order, stopping at the first success.
func (e *Engine) runStep(ctx context.Context, step *models.Step) models.StepResult {
	start := e.now()

	primary := e.dispatcher.Dispatch(ctx, step.Action)
	attempts := 1
	if primary.Success {
		return models.StepResult{
			Success:  true,
			Output:   primary.Output,
			Attempts: attempts,
			Duration: e.now().Sub(start),
		}
	}

	lastErr := primary.Error
	for idx := range step.Fallbacks {
		fb := &step.Fallbacks[idx]
		e.logDebug(fmt.Sprintf("step %q: primary failed (%s), trying fallback %d: %s",
			step.Title, lastErr, idx+1, fb.Action.Summary()))

		res := e.dispatcher.Dispatch(ctx, fb.Action)
		attempts++
		if res.Success {
			return models.StepResult{
				Success:       true,
				Output:        res.Output,
				UsedFallback:  true,
				FallbackIndex: idx,
				FallbackID:    fb.ID,
				Attempts:      attempts,
				Duration:      e.now().Sub(start),
			}
		}
		lastErr = res.Error
	}

	return models.StepResult{
		Success:  false,
		Error:    lastErr,
		Attempts: attempts,
		Duration: e.now().Sub(start),
	}
}

// reportSuccess feeds a completed step back into pattern memory. Failures to
// record are logged, never propagated: learning is best-effort.
func (e *Engine) reportSuccess(ctx context.Context, step *models.Step, result *models.StepResult, taskContext map[string]string) {
	if e.patterns == nil {
		return
	}
	if err := e.patterns.Store(ctx, step, result, taskContext); err != nil {
		e.logWarn(fmt.Sprintf("recording outcome for step %q failed: %v", step.Title, err))
	}
}

// cancelTask marks the task cancelled and skips every step from index on.
func (e *Engine) cancelTask(task *models.Task, from int, reason string) {
	task.Status = models.TaskCancelled
	if task.FailureMessage == "" {
		task.FailureMessage = reason
	}
	e.skipRemaining(task, from)
}

// skipRemaining marks steps that will never dispatch as skipped.
func (e *Engine) skipRemaining(task *models.Task, from int) {
	for i := from; i < len(task.Steps); i++ {
		if !task.Steps[i].IsTerminal() && task.Steps[i].Status != models.StepInProgress {
			task.Steps[i].Status = models.StepSkipped
		}
	}
}

// aggregate summarizes the finished task.
func (e *Engine) aggregate(task *models.Task, duration time.Duration) models.ExecutionResult {
	return Summarize(task, duration)
}

// Summarize computes the execution summary for a task that has finished
// running.
func Summarize(task *models.Task, duration time.Duration) models.ExecutionResult {
	result := models.ExecutionResult{
		TotalSteps:  len(task.Steps),
		Duration:    duration,
		FinalStatus: task.Status,
	}
	for i := range task.Steps {
		switch task.Steps[i].Status {
		case models.StepCompleted:
			result.Completed++
		case models.StepFailed:
			result.Failed++
			result.FailedSteps = append(result.FailedSteps, task.Steps[i])
		case models.StepSkipped:
			result.Skipped++
		}
	}
	return result
}

func (e *Engine) logDebug(msg string) {
	if e.log != nil {
		e.log.LogDebug(msg)
	}
}

func (e *Engine) logInfo(msg string) {
	if e.log != nil {
		e.log.LogInfo(msg)
	}
}

func (e *Engine) logWarn(msg string) {
	if e.log != nil {
		e.log.LogWarn(msg)
	}
}
