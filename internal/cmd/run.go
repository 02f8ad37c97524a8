package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/pilot/internal/actions"
	"github.com/harrison/pilot/internal/executor"
	"github.com/harrison/pilot/internal/models"
	"github.com/harrison/pilot/internal/planner"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <task-description>...",
		Short: "Plan and execute one or more tasks",
		Long: `Plan each task description and execute the resulting steps in order.

Failed steps automatically fall back to their pre-generated alternatives.
High-risk and destructive steps pause for operator approval unless
--auto-approve is set. Successful approaches are remembered and raise
confidence for similar steps in future plans.

Multiple descriptions run as independent tasks; steps within each task
always run strictly in order.

Configuration is loaded from .pilot/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  pilot run "read package.json and report the version"
  pilot run --auto-approve "create default config files"
  pilot run --on-failure skip "run the full maintenance checklist"
  pilot run "update the README" "tidy the changelog" --concurrency 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .pilot/config.yaml)")
	cmd.Flags().Bool("auto-approve", false, "Approve every gated step without asking")
	cmd.Flags().String("on-failure", "", "Failure policy: halt or skip (default: use config)")
	cmd.Flags().Int("max-steps", -1, "Maximum number of plan steps (0 = unlimited, -1 = use config)")
	cmd.Flags().Bool("require-approval", false, "Gate every step behind approval, not just risky ones")
	cmd.Flags().Bool("allow-destructive", false, "Permit destructive commands to run")
	cmd.Flags().String("workspace", ".", "Workspace root steps operate on")
	cmd.Flags().Int("concurrency", 1, "Maximum number of tasks running at once (0 = unlimited)")
	cmd.Flags().String("log-level", "", "Logging verbosity (trace, debug, info, warn, error)")

	return cmd
}

// runRun implements the run command logic
func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfigFromCmd(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	store, closeStore, err := openPatternStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	model, err := buildModel(cfg)
	if err != nil {
		return fmt.Errorf("configure model backend: %w", err)
	}

	// Plan every task up front so a malformed request fails before anything
	// executes.
	var responses []*models.PlanResponse
	var workspace string
	for _, description := range args {
		req, err := buildPlanRequest(cmd, cfg, description)
		if err != nil {
			return err
		}
		workspace = req.Context.WorkspaceRoot

		p := planner.NewPlanner(chooseDecomposer(model, description), store, log)
		resp, err := p.PlanWithConfidence(ctx, req)
		if err != nil {
			return fmt.Errorf("plan task: %w", err)
		}
		if resp.Task.Status == models.TaskFailed {
			return fmt.Errorf("planning failed: %s", resp.Task.FailureMessage)
		}
		responses = append(responses, resp)
	}

	terminal := newTerminalPrompter()

	allowDestructive, _ := cmd.Flags().GetBool("allow-destructive")
	registryOpts := []actions.RegistryOption{}
	if model != nil {
		registryOpts = append(registryOpts, actions.WithModelExecutor(&actions.ModelCaller{Model: model}))
	}
	if terminal != nil {
		registryOpts = append(registryOpts, actions.WithAssistExecutor(&actions.AssistanceRequester{Assist: terminal.Assist}))
	}
	registry := actions.NewDefaultRegistry(workspace, registryOpts...)
	registry.Register(models.ActionRunCommand, &actions.CommandRunner{
		Dir:              workspace,
		AllowDestructive: allowDestructive,
		Timeout:          cfg.Execution.StepTimeout,
	})

	engine := executor.NewEngine(registry, executor.Options{
		Patterns:  store,
		Approver:  buildApprover(cmd, terminal),
		OnFailure: failurePolicy(cmd, cfg.Execution.OnFailure),
		Logger:    log,
	})

	queueLimit, _ := cmd.Flags().GetInt("concurrency")
	queue := executor.NewQueue(engine, queueLimit)
	for _, resp := range responses {
		queue.Submit(ctx, resp.Task, executor.Callbacks{
			OnStepComplete: func(step *models.Step, result *models.StepResult) {
				log.LogStepResult(*step)
			},
			OnStepError: func(step *models.Step, err error) {
				log.LogStepResult(*step)
			},
		})
	}
	queue.Wait()

	if err := store.Flush(ctx); err != nil {
		log.LogWarn(fmt.Sprintf("flush pattern store: %v", err))
	}

	failed := 0
	for _, resp := range responses {
		task := resp.Task
		log.LogSummary(executor.Summarize(task, taskDuration(task)))
		if task.Status != models.TaskCompleted {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d task(s) did not complete", failed, len(responses))
	}
	return nil
}

// failurePolicy resolves the effective failure policy from the flag and
// config value.
func failurePolicy(cmd *cobra.Command, configured string) executor.FailurePolicy {
	value, _ := cmd.Flags().GetString("on-failure")
	if value == "" {
		value = configured
	}
	if value == "skip" {
		return executor.PolicySkip
	}
	return executor.PolicyHalt
}

// buildApprover wires approval gating: --auto-approve approves everything,
// an interactive terminal asks the operator, and anything else rejects.
func buildApprover(cmd *cobra.Command, terminal *terminalPrompter) executor.Approver {
	if autoApprove, _ := cmd.Flags().GetBool("auto-approve"); autoApprove {
		return executor.ApproverFunc(func(ctx context.Context, task *models.Task, step *models.Step) (bool, error) {
			return true, nil
		})
	}
	if terminal == nil {
		// Non-interactive without --auto-approve: gated steps are rejected.
		return nil
	}
	return executor.ApproverFunc(terminal.Approve)
}

func taskDuration(task *models.Task) time.Duration {
	if task.StartedAt == nil || task.CompletedAt == nil {
		return 0
	}
	return task.CompletedAt.Sub(*task.StartedAt)
}

// terminalPrompter serializes operator prompts on the controlling terminal.
// Concurrent tasks share one prompter so questions never interleave.
type terminalPrompter struct {
	mu     sync.Mutex
	reader *bufio.Reader
}

// newTerminalPrompter returns nil when stdin is not a terminal.
func newTerminalPrompter() *terminalPrompter {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return nil
	}
	return &terminalPrompter{reader: bufio.NewReader(os.Stdin)}
}

// Approve asks the operator to approve one step. Only an explicit "y" or
// "yes" approves.
func (t *terminalPrompter) Approve(ctx context.Context, task *models.Task, step *models.Step) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(os.Stderr, "\nTask %q needs approval for step: %s\n", task.Title, step.Title)
	fmt.Fprintf(os.Stderr, "  action: %s\n", step.Action.Summary())
	if step.Confidence != nil {
		fmt.Fprintf(os.Stderr, "  confidence: %d (%s)\n", step.Confidence.Score, step.Confidence.Risk)
	}
	fmt.Fprint(os.Stderr, "Proceed? [y/N] ")

	line, err := t.reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read approval response: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// Assist surfaces a step's problem to the operator and collects free-form
// guidance. An empty line declines.
func (t *terminalPrompter) Assist(ctx context.Context, prompt string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(os.Stderr, "\nAssistance requested:\n%s\n", prompt)
	fmt.Fprint(os.Stderr, "Guidance (empty line to decline): ")

	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", false
	}
	guidance := strings.TrimSpace(line)
	if guidance == "" {
		return "", false
	}
	return guidance, true
}
