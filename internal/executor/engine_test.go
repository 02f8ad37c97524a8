package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/pilot/internal/actions"
	"github.com/harrison/pilot/internal/models"
)

// scriptedDispatcher returns canned results keyed by a recognizable part of
// the action, recording every dispatch in order.
type scriptedDispatcher struct {
	mu      sync.Mutex
	results map[string]actions.Result
	calls   []string
}

func newScriptedDispatcher() *scriptedDispatcher {
	return &scriptedDispatcher{results: make(map[string]actions.Result)}
}

func (d *scriptedDispatcher) on(key string, result actions.Result) {
	d.results[key] = result
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, action models.Action) actions.Result {
	key := actionKey(action)
	d.mu.Lock()
	d.calls = append(d.calls, key)
	result, ok := d.results[key]
	d.mu.Unlock()
	if !ok {
		return actions.Result{Success: true, Output: "default ok"}
	}
	return result
}

func (d *scriptedDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func actionKey(action models.Action) string {
	switch {
	case action.Path != "":
		return action.Path
	case action.Command != "":
		return action.Command
	case action.Query != "":
		return action.Query
	case action.Prompt != "":
		return action.Prompt
	}
	return string(action.Type)
}

// recordingPatterns captures Store calls.
type recordingPatterns struct {
	mu     sync.Mutex
	stored []string
	err    error
}

func (r *recordingPatterns) Store(ctx context.Context, step *models.Step, result *models.StepResult, taskContext map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, step.Title)
	return r.err
}

func (r *recordingPatterns) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.stored...)
}

func newTask(steps ...models.Step) *models.Task {
	for i := range steps {
		steps[i].Index = i
		if steps[i].ID == "" {
			steps[i].ID = steps[i].Title
		}
		steps[i].Status = models.StepPending
	}
	return &models.Task{
		ID:      "task-1",
		Title:   "test task",
		Request: "test request",
		Steps:   steps,
		Status:  models.TaskPlanning,
	}
}

func readFileStep(title, path string, fallbacks ...models.FallbackPlan) models.Step {
	return models.Step{
		Title:       title,
		Description: title,
		Action:      models.Action{Type: models.ActionReadFile, Path: path},
		Fallbacks:   fallbacks,
	}
}

func TestExecuteTaskAllStepsSucceed(t *testing.T) {
	d := newScriptedDispatcher()
	engine := NewEngine(d, Options{})

	task := newTask(
		readFileStep("step one", "a.txt"),
		readFileStep("step two", "b.txt"),
	)

	var progress []int
	result := engine.ExecuteTask(context.Background(), task, Callbacks{
		OnTaskProgress: func(completed, total int) { progress = append(progress, completed) },
	})

	assert.Equal(t, models.TaskCompleted, result.Status)
	assert.Equal(t, []string{"a.txt", "b.txt"}, d.dispatched(), "steps run strictly in order")
	assert.Equal(t, []int{1, 2}, progress)
	for i := range result.Steps {
		assert.Equal(t, models.StepCompleted, result.Steps[i].Status)
		require.NotNil(t, result.Steps[i].Result)
		assert.Equal(t, 1, result.Steps[i].Result.Attempts)
	}
	assert.NotNil(t, result.StartedAt)
	assert.NotNil(t, result.CompletedAt)
}

func TestExecuteTaskFallbackChain(t *testing.T) {
	d := newScriptedDispatcher()
	d.on("config.json", actions.Result{Success: false, Error: "read config.json: no such file"})
	d.on("config.json-query", actions.Result{Success: false, Error: "no files matching"})
	d.on("create-config", actions.Result{Success: true, Output: "wrote 3 bytes"})

	engine := NewEngine(d, Options{})

	fallbacks := []models.FallbackPlan{
		{
			ID:      "fb-search",
			Action:  models.Action{Type: models.ActionSearchCodebase, Query: "config.json-query"},
			Trigger: "not found",
		},
		{
			ID:      "fb-create",
			Action:  models.Action{Type: models.ActionCreateFile, Path: "create-config", Content: "{}\n"},
			Trigger: "not found",
		},
	}
	task := newTask(readFileStep("load config", "config.json", fallbacks...))

	result := engine.ExecuteTask(context.Background(), task, Callbacks{})

	require.Equal(t, models.TaskCompleted, result.Status)
	step := result.Steps[0]
	assert.Equal(t, models.StepCompleted, step.Status)
	require.NotNil(t, step.Result)
	assert.True(t, step.Result.Success)
	assert.True(t, step.Result.UsedFallback)
	assert.Equal(t, 1, step.Result.FallbackIndex, "the second fallback succeeded")
	assert.Equal(t, "fb-create", step.Result.FallbackID)
	assert.Equal(t, 3, step.Result.Attempts)
	assert.Equal(t, []string{"config.json", "config.json-query", "create-config"}, d.dispatched())
}

func TestExecuteTaskFallbacksExhaustedHaltPolicy(t *testing.T) {
	d := newScriptedDispatcher()
	d.on("missing.txt", actions.Result{Success: false, Error: "primary failed"})
	d.on("missing.txt-query", actions.Result{Success: false, Error: "fallback failed too"})

	engine := NewEngine(d, Options{})

	task := newTask(
		readFileStep("doomed step", "missing.txt", models.FallbackPlan{
			ID:     "fb-1",
			Action: models.Action{Type: models.ActionSearchCodebase, Query: "missing.txt-query"},
		}),
		readFileStep("never runs", "later.txt"),
	)

	result := engine.ExecuteTask(context.Background(), task, Callbacks{})

	assert.Equal(t, models.TaskFailed, result.Status)
	assert.Contains(t, result.FailureMessage, "doomed step")

	assert.Equal(t, models.StepFailed, result.Steps[0].Status)
	require.NotNil(t, result.Steps[0].Result)
	assert.Equal(t, "fallback failed too", result.Steps[0].Result.Error,
		"the last error in the chain is reported")
	assert.Equal(t, 2, result.Steps[0].Result.Attempts)

	assert.Equal(t, models.StepSkipped, result.Steps[1].Status, "halt policy skips the remainder")
	assert.NotContains(t, d.dispatched(), "later.txt")
}

func TestExecuteTaskSkipPolicyContinues(t *testing.T) {
	d := newScriptedDispatcher()
	d.on("missing.txt", actions.Result{Success: false, Error: "nope"})

	engine := NewEngine(d, Options{OnFailure: PolicySkip})

	task := newTask(
		readFileStep("fails", "missing.txt"),
		readFileStep("still runs", "later.txt"),
	)

	result := engine.ExecuteTask(context.Background(), task, Callbacks{})

	assert.Equal(t, models.TaskCompleted, result.Status,
		"skip policy completes the task despite step failures")
	assert.Equal(t, models.StepFailed, result.Steps[0].Status)
	assert.Equal(t, models.StepCompleted, result.Steps[1].Status)
	assert.Contains(t, d.dispatched(), "later.txt")
}

func TestExecuteTaskApprovalRejectionCancels(t *testing.T) {
	d := newScriptedDispatcher()
	rejectAll := ApproverFunc(func(ctx context.Context, task *models.Task, step *models.Step) (bool, error) {
		return false, nil
	})
	engine := NewEngine(d, Options{Approver: rejectAll})

	gated := readFileStep("gated step", "secret.txt")
	gated.RequiresApproval = true
	task := newTask(
		readFileStep("first", "a.txt"),
		gated,
		readFileStep("after rejection", "b.txt"),
	)

	result := engine.ExecuteTask(context.Background(), task, Callbacks{})

	assert.Equal(t, models.TaskCancelled, result.Status)
	assert.Contains(t, result.FailureMessage, "rejected")
	assert.Equal(t, models.StepCompleted, result.Steps[0].Status)
	assert.Equal(t, models.StepRejected, result.Steps[1].Status)
	assert.Equal(t, models.StepSkipped, result.Steps[2].Status)

	dispatched := d.dispatched()
	assert.NotContains(t, dispatched, "secret.txt", "a rejected step never dispatches")
	assert.NotContains(t, dispatched, "b.txt", "nothing after a rejection dispatches")
}

func TestExecuteTaskNoApproverRejectsGatedSteps(t *testing.T) {
	d := newScriptedDispatcher()
	engine := NewEngine(d, Options{})

	gated := readFileStep("gated step", "secret.txt")
	gated.RequiresApproval = true
	task := newTask(gated)

	result := engine.ExecuteTask(context.Background(), task, Callbacks{})

	assert.Equal(t, models.TaskCancelled, result.Status)
	assert.Equal(t, models.StepRejected, result.Steps[0].Status)
	assert.Empty(t, d.dispatched(), "consent is never assumed")
}

func TestExecuteTaskApproverErrorTreatedAsRejection(t *testing.T) {
	d := newScriptedDispatcher()
	failing := ApproverFunc(func(ctx context.Context, task *models.Task, step *models.Step) (bool, error) {
		return true, errors.New("terminal went away")
	})
	engine := NewEngine(d, Options{Approver: failing})

	gated := readFileStep("gated step", "secret.txt")
	gated.RequiresApproval = true
	task := newTask(gated)

	result := engine.ExecuteTask(context.Background(), task, Callbacks{})
	assert.Equal(t, models.StepRejected, result.Steps[0].Status)
	assert.Empty(t, d.dispatched())
}

func TestExecuteTaskApprovalGrantedRuns(t *testing.T) {
	d := newScriptedDispatcher()
	var asked []string
	approver := ApproverFunc(func(ctx context.Context, task *models.Task, step *models.Step) (bool, error) {
		asked = append(asked, step.Title)
		return true, nil
	})
	engine := NewEngine(d, Options{Approver: approver})

	gated := readFileStep("gated step", "secret.txt")
	gated.RequiresApproval = true
	task := newTask(gated)

	var sawAwaiting bool
	result := engine.ExecuteTask(context.Background(), task, Callbacks{
		OnStepApprovalRequired: func(step *models.Step) {
			sawAwaiting = step.Status == models.StepAwaitingApproval
		},
	})

	assert.Equal(t, models.TaskCompleted, result.Status)
	assert.Equal(t, []string{"gated step"}, asked)
	assert.True(t, sawAwaiting, "the step is awaiting-approval while the gate is open")
	assert.Equal(t, models.StepCompleted, result.Steps[0].Status)
}

func TestExecuteTaskReportsSuccessesToPatterns(t *testing.T) {
	d := newScriptedDispatcher()
	d.on("missing.txt", actions.Result{Success: false, Error: "nope"})

	patterns := &recordingPatterns{}
	engine := NewEngine(d, Options{Patterns: patterns, OnFailure: PolicySkip})

	task := newTask(
		readFileStep("works", "a.txt"),
		readFileStep("fails", "missing.txt"),
	)

	engine.ExecuteTask(context.Background(), task, Callbacks{})

	assert.Equal(t, []string{"works"}, patterns.titles(),
		"only successful steps feed pattern memory")
}

func TestExecuteTaskPatternFailureDoesNotFailTask(t *testing.T) {
	d := newScriptedDispatcher()
	patterns := &recordingPatterns{err: errors.New("store offline")}
	engine := NewEngine(d, Options{Patterns: patterns})

	task := newTask(readFileStep("works", "a.txt"))
	result := engine.ExecuteTask(context.Background(), task, Callbacks{})

	assert.Equal(t, models.TaskCompleted, result.Status, "learning is best-effort")
}

func TestExecuteTaskCancelBeforeStart(t *testing.T) {
	d := newScriptedDispatcher()
	engine := NewEngine(d, Options{})
	engine.Cancel()

	task := newTask(readFileStep("never runs", "a.txt"))
	result := engine.ExecuteTask(context.Background(), task, Callbacks{})

	assert.Equal(t, models.TaskCancelled, result.Status)
	assert.Equal(t, models.StepSkipped, result.Steps[0].Status)
	assert.Empty(t, d.dispatched())
}

func TestExecuteTaskContextCancellation(t *testing.T) {
	d := newScriptedDispatcher()
	engine := NewEngine(d, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := newTask(readFileStep("never runs", "a.txt"))
	result := engine.ExecuteTask(ctx, task, Callbacks{})

	assert.Equal(t, models.TaskCancelled, result.Status)
	assert.Empty(t, d.dispatched())
}

func TestPauseBlocksNextStepUntilResume(t *testing.T) {
	d := newScriptedDispatcher()
	engine := NewEngine(d, Options{})
	engine.Pause()
	require.True(t, engine.Paused())

	task := newTask(readFileStep("paused step", "a.txt"))
	done := make(chan *models.Task, 1)
	go func() {
		done <- engine.ExecuteTask(context.Background(), task, Callbacks{})
	}()

	select {
	case <-done:
		t.Fatal("execution proceeded while paused")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, d.dispatched())

	engine.Resume()
	select {
	case result := <-done:
		assert.Equal(t, models.TaskCompleted, result.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("execution did not resume")
	}
	assert.False(t, engine.Paused())
}

func TestCancelReleasesPause(t *testing.T) {
	d := newScriptedDispatcher()
	engine := NewEngine(d, Options{})
	engine.Pause()

	task := newTask(readFileStep("paused step", "a.txt"))
	done := make(chan *models.Task, 1)
	go func() {
		done <- engine.ExecuteTask(context.Background(), task, Callbacks{})
	}()

	time.Sleep(20 * time.Millisecond)
	engine.Cancel()

	select {
	case result := <-done:
		assert.Equal(t, models.TaskCancelled, result.Status)
		assert.Empty(t, d.dispatched())
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not release the paused execution")
	}
}

func TestExecuteTaskResumeSkipsTerminalSteps(t *testing.T) {
	d := newScriptedDispatcher()
	engine := NewEngine(d, Options{})

	first := readFileStep("already done", "a.txt")
	task := newTask(first, readFileStep("remaining", "b.txt"))
	task.Steps[0].Status = models.StepCompleted
	task.Steps[0].Result = &models.StepResult{Success: true}

	result := engine.ExecuteTask(context.Background(), task, Callbacks{})

	assert.Equal(t, models.TaskCompleted, result.Status)
	assert.Equal(t, []string{"b.txt"}, d.dispatched(), "terminal steps are not re-dispatched")
}

func TestSummarize(t *testing.T) {
	task := newTask(
		readFileStep("one", "a.txt"),
		readFileStep("two", "b.txt"),
		readFileStep("three", "c.txt"),
		readFileStep("four", "d.txt"),
	)
	task.Status = models.TaskFailed
	task.Steps[0].Status = models.StepCompleted
	task.Steps[1].Status = models.StepFailed
	task.Steps[1].Result = &models.StepResult{Success: false, Error: "boom"}
	task.Steps[2].Status = models.StepSkipped
	task.Steps[3].Status = models.StepSkipped

	summary := Summarize(task, 3*time.Second)

	assert.Equal(t, 4, summary.TotalSteps)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, models.TaskFailed, summary.FinalStatus)
	assert.Equal(t, 3*time.Second, summary.Duration)
	require.Len(t, summary.FailedSteps, 1)
	assert.Equal(t, "two", summary.FailedSteps[0].Title)
}
