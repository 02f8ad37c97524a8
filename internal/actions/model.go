package actions

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/harrison/pilot/internal/models"
)

// ModelCaller executes call-model actions against an LLM backend.
type ModelCaller struct {
	Model llms.Model
}

func (e *ModelCaller) Execute(ctx context.Context, action models.Action) Result {
	if e.Model == nil {
		return Result{Success: false, Error: "no model configured"}
	}
	if action.Prompt == "" {
		return Result{Success: false, Error: "model prompt is empty"}
	}

	output, err := llms.GenerateFromSinglePrompt(ctx, e.Model, action.Prompt)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("model call: %v", err)}
	}
	return Result{Success: true, Output: output}
}
