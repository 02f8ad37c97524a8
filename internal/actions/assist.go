package actions

import (
	"context"

	"github.com/harrison/pilot/internal/models"
)

// AssistFunc surfaces a problem to a human operator and returns their
// guidance. Returning ok=false means no operator was available or they
// declined to help.
type AssistFunc func(ctx context.Context, prompt string) (guidance string, ok bool)

// AssistanceRequester executes request-assistance actions, the last-resort
// fallback for high-risk steps. With no AssistFunc wired it fails cleanly,
// which lets the step fail with a clear reason instead of silently
// "succeeding" without a human in the loop.
type AssistanceRequester struct {
	Assist AssistFunc
}

func (e *AssistanceRequester) Execute(ctx context.Context, action models.Action) Result {
	if e.Assist == nil {
		return Result{Success: false, Error: "operator assistance required but no operator is available"}
	}

	guidance, ok := e.Assist(ctx, action.Prompt)
	if !ok {
		return Result{Success: false, Error: "operator declined to assist"}
	}
	return Result{Success: true, Output: guidance}
}
