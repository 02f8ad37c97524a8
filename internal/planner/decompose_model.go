package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/harrison/pilot/internal/models"
)

// ModelDecomposer delegates decomposition to an LLM reasoning backend and
// parses the structured step list it returns. Any malformed response is
// surfaced as an error; the planner converts that into a failed task.
type ModelDecomposer struct {
	model llms.Model
}

// NewModelDecomposer creates a decomposer backed by the given model.
func NewModelDecomposer(model llms.Model) *ModelDecomposer {
	return &ModelDecomposer{model: model}
}

// modelStep is the JSON shape the model is asked to emit per step.
type modelStep struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	ActionType       string `json:"action_type"`
	Path             string `json:"path,omitempty"`
	Content          string `json:"content,omitempty"`
	Command          string `json:"command,omitempty"`
	Query            string `json:"query,omitempty"`
	Prompt           string `json:"prompt,omitempty"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`
}

// Decompose sends the request to the model and parses its JSON step list.
func (d *ModelDecomposer) Decompose(ctx context.Context, req models.PlanRequest) ([]DraftStep, error) {
	prompt := d.buildPrompt(req)

	output, err := llms.GenerateFromSinglePrompt(ctx, d.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("model decomposition: %w", err)
	}

	var raw []modelStep
	if err := json.Unmarshal([]byte(stripFences(output)), &raw); err != nil {
		return nil, fmt.Errorf("parse model step list: %w", err)
	}

	drafts := make([]DraftStep, 0, len(raw))
	for _, ms := range raw {
		action := models.Action{
			Type:    models.ActionType(ms.ActionType),
			Path:    ms.Path,
			Content: ms.Content,
			Command: ms.Command,
			Query:   ms.Query,
			Prompt:  ms.Prompt,
		}
		switch action.Type {
		case models.ActionReadFile, models.ActionWriteFile, models.ActionCreateFile,
			models.ActionRunCommand, models.ActionSearchCodebase, models.ActionCallModel:
			// known type
		default:
			// Unknown action types degrade to a model call carrying the
			// step description rather than failing the whole plan.
			action = models.Action{Type: models.ActionCallModel, Prompt: ms.Description}
		}
		if action.Type == models.ActionRunCommand {
			action.Destructive = destructivePattern.MatchString(action.Command)
		}

		title := ms.Title
		if title == "" {
			title = clampTitle(ms.Description)
		}
		drafts = append(drafts, DraftStep{
			Title:            title,
			Description:      ms.Description,
			Action:           action,
			RequiresApproval: ms.RequiresApproval || action.Destructive,
		})
	}
	return drafts, nil
}

// buildPrompt constructs the decomposition prompt from the request and its
// workspace context.
func (d *ModelDecomposer) buildPrompt(req models.PlanRequest) string {
	var sb strings.Builder

	sb.WriteString("Break the following request into an ordered list of discrete steps.\n\n")
	sb.WriteString(fmt.Sprintf("Request: %s\n", truncate(req.UserRequest, 2000)))

	if req.Context.WorkspaceRoot != "" {
		sb.WriteString(fmt.Sprintf("Workspace: %s\n", req.Context.WorkspaceRoot))
	}
	if req.Context.CurrentFile != "" {
		sb.WriteString(fmt.Sprintf("Current file: %s\n", req.Context.CurrentFile))
	}
	if len(req.Context.OpenFiles) > 0 {
		sb.WriteString(fmt.Sprintf("Open files: %s\n", strings.Join(req.Context.OpenFiles, ", ")))
	}
	if req.Options.MaxSteps > 0 {
		sb.WriteString(fmt.Sprintf("Use at most %d steps.\n", req.Options.MaxSteps))
	}

	sb.WriteString("\nEach step must have exactly one action. Valid action types:\n")
	sb.WriteString("read-file, write-file, create-file, run-command, search-codebase, call-model.\n")
	sb.WriteString("\nRespond with a JSON array only, no prose. Each element:\n")
	sb.WriteString(`{"title": "...", "description": "...", "action_type": "...", "path": "...", "content": "...", "command": "...", "query": "...", "prompt": "...", "requires_approval": false}`)
	sb.WriteString("\nOmit fields that do not apply to the action type.")

	return sb.String()
}

// stripFences removes a markdown code fence wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
