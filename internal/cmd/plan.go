package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/pilot/internal/config"
	"github.com/harrison/pilot/internal/models"
	"github.com/harrison/pilot/internal/planner"
)

// NewPlanCommand creates the plan command
func NewPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <task-description>",
		Short: "Plan a task without executing it",
		Long: `Decompose a task description into steps, score each step's confidence
against pattern memory, and show the resulting plan with risk levels
and pre-generated fallbacks.

Nothing is executed. Use 'pilot run' to plan and execute in one go.

The description can be free text or a markdown checklist; checklists are
decomposed item by item. When a model provider is configured, the model
decomposes the description instead.

Examples:
  pilot plan "read package.json and update the version field"
  pilot plan --file todo.md
  pilot plan --json "create a config file" > plan.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPlan,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .pilot/config.yaml)")
	cmd.Flags().String("file", "", "Read the task description from a file")
	cmd.Flags().Bool("json", false, "Print the full plan as JSON")
	cmd.Flags().Int("max-steps", -1, "Maximum number of plan steps (0 = unlimited, -1 = use config)")
	cmd.Flags().Bool("require-approval", false, "Gate every step behind approval, not just risky ones")
	cmd.Flags().Bool("allow-destructive", false, "Permit destructive commands in the plan")
	cmd.Flags().String("workspace", ".", "Workspace root the plan operates on")
	cmd.Flags().String("log-level", "", "Logging verbosity (trace, debug, info, warn, error)")

	return cmd
}

// runPlan implements the plan command logic
func runPlan(cmd *cobra.Command, args []string) error {
	description, err := resolveDescription(cmd, args)
	if err != nil {
		return err
	}

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

	req, err := buildPlanRequest(cmd, cfg, description)
	if err != nil {
		return err
	}

	p := planner.NewPlanner(chooseDecomposer(model, description), store, log)
	resp, err := p.PlanWithConfidence(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("plan task: %w", err)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	renderPlan(cmd.OutOrStdout(), resp)
	if resp.Task.Status == models.TaskFailed {
		return fmt.Errorf("planning failed: %s", resp.Task.FailureMessage)
	}
	return nil
}

// resolveDescription returns the task description from the positional
// argument or the --file flag.
func resolveDescription(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		if len(args) > 0 {
			return "", fmt.Errorf("provide a description argument or --file, not both")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read description file: %w", err)
		}
		return string(data), nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("a task description is required (argument or --file)")
	}
	return args[0], nil
}

// buildPlanRequest assembles the planning request from flags and config.
// CLI flags take precedence over config file settings.
func buildPlanRequest(cmd *cobra.Command, cfg *config.Config, description string) (models.PlanRequest, error) {
	workspace, _ := cmd.Flags().GetString("workspace")
	absWorkspace, err := filepath.Abs(workspace)
	if err != nil {
		return models.PlanRequest{}, fmt.Errorf("resolve workspace path: %w", err)
	}

	maxSteps := cfg.MaxSteps
	if flagMaxSteps, _ := cmd.Flags().GetInt("max-steps"); flagMaxSteps >= 0 {
		maxSteps = flagMaxSteps
	}
	requireApproval := cfg.Execution.RequireApproval
	if flagRequire, _ := cmd.Flags().GetBool("require-approval"); flagRequire {
		requireApproval = true
	}
	allowDestructive, _ := cmd.Flags().GetBool("allow-destructive")

	return models.PlanRequest{
		UserRequest: description,
		Context: models.PlanContext{
			WorkspaceRoot: absWorkspace,
		},
		Options: models.PlanOptions{
			MaxSteps:                maxSteps,
			RequireApprovalForAll:   requireApproval,
			AllowDestructiveActions: allowDestructive,
		},
	}, nil
}

func renderPlan(w io.Writer, resp *models.PlanResponse) {
	task := resp.Task

	bold := color.New(color.Bold)
	fmt.Fprintf(w, "%s\n", bold.Sprintf("Plan: %s", task.Title))
	if resp.Reasoning != "" {
		fmt.Fprintf(w, "%s\n", resp.Reasoning)
	}
	fmt.Fprintln(w)

	for i := range task.Steps {
		step := &task.Steps[i]
		fmt.Fprintf(w, "%2d. %s\n", i+1, step.Title)
		fmt.Fprintf(w, "    action: %s\n", step.Action.Summary())
		if step.Confidence != nil {
			fmt.Fprintf(w, "    confidence: %d (%s)\n", step.Confidence.Score, riskBadge(step.Confidence.Risk))
			for _, factor := range step.Confidence.Factors {
				fmt.Fprintf(w, "      %+d %s\n", factor.Delta, factor.Reason)
			}
		}
		if step.RequiresApproval {
			fmt.Fprintf(w, "    %s\n", color.YellowString("requires approval"))
		}
		for j, fb := range step.Fallbacks {
			fmt.Fprintf(w, "    fallback %d: %s (confidence %d)\n", j+1, fb.Rationale, fb.Confidence)
		}
	}

	if len(resp.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, warning := range resp.Warnings {
			fmt.Fprintf(w, "%s %s\n", color.YellowString("warning:"), warning)
		}
	}

	if insights := resp.Insights; insights != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Overall confidence:     %.0f\n", insights.OverallConfidence)
		fmt.Fprintf(w, "Estimated success rate: %.0f%%\n", insights.EstimatedSuccessRate)
		fmt.Fprintf(w, "High-risk steps:        %d\n", insights.HighRiskSteps)
		fmt.Fprintf(w, "Memory-backed steps:    %d\n", insights.MemoryBackedSteps)
		fmt.Fprintf(w, "Fallback plans:         %d\n", insights.FallbackPlans)
	}
	if resp.EstimatedTime > 0 {
		fmt.Fprintf(w, "Estimated time:         %s\n", resp.EstimatedTime.Round(time.Second))
	}
}

func riskBadge(risk models.RiskLevel) string {
	switch risk {
	case models.RiskLow:
		return color.GreenString(string(risk))
	case models.RiskMedium:
		return color.YellowString(string(risk))
	case models.RiskHigh:
		return color.RedString(string(risk))
	}
	return string(risk)
}
