package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/pilot/internal/models"
	"github.com/harrison/pilot/internal/pattern"
)

// memoryWeight scales how much memory-backed steps raise the estimated
// success rate above the raw confidence mean.
const memoryWeight = 0.3

// Logger is the minimal logging surface the planner needs.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

// PatternQuerier is the read-only view of the pattern store the planner
// consults. The planner never writes patterns; only the execution engine
// reports outcomes back.
type PatternQuerier interface {
	Query(ctx context.Context, req pattern.QueryRequest) []pattern.Match
}

// Planner decomposes a request into steps, scores each step's confidence
// against pattern memory, and pre-generates fallbacks for risky steps.
type Planner struct {
	decomposer Decomposer
	patterns   PatternQuerier
	scorer     *Scorer
	generator  *Generator
	log        Logger
	now        func() time.Time
}

// NewPlanner creates a planner. patterns may be nil, in which case every
// step is scored without memory backing. log may be nil.
func NewPlanner(decomposer Decomposer, patterns PatternQuerier, log Logger) *Planner {
	if decomposer == nil {
		panic("decomposer cannot be nil")
	}
	return &Planner{
		decomposer: decomposer,
		patterns:   patterns,
		scorer:     NewScorer(),
		generator:  NewGenerator(),
		log:        log,
		now:        time.Now,
	}
}

// PlanWithConfidence builds a fully annotated task for the request. Planning
// failures (empty request, decomposition errors, zero steps) are reported via
// Task.Status == failed with an explanatory message, never as a returned
// error; callers must check status.
func (p *Planner) PlanWithConfidence(ctx context.Context, req models.PlanRequest) (*models.PlanResponse, error) {
	task := &models.Task{
		ID:        uuid.NewString(),
		Title:     clampTitle(firstLine(req.UserRequest)),
		Request:   req.UserRequest,
		Context:   req.Context,
		Status:    models.TaskPlanning,
		CreatedAt: p.now(),
	}
	resp := &models.PlanResponse{Task: task}

	if strings.TrimSpace(req.UserRequest) == "" {
		task.Status = models.TaskFailed
		task.FailureMessage = "planning failed: empty request"
		return resp, nil
	}

	drafts, err := p.decomposer.Decompose(ctx, req)
	if err != nil {
		task.Status = models.TaskFailed
		task.FailureMessage = fmt.Sprintf("planning failed: %v", err)
		p.logWarn(task.FailureMessage)
		return resp, nil
	}
	if len(drafts) == 0 {
		task.Status = models.TaskFailed
		task.FailureMessage = "planning failed: request decomposed into zero steps"
		return resp, nil
	}

	if req.Options.MaxSteps > 0 && len(drafts) > req.Options.MaxSteps {
		resp.Warnings = append(resp.Warnings,
			fmt.Sprintf("plan truncated from %d to %d steps", len(drafts), req.Options.MaxSteps))
		drafts = drafts[:req.Options.MaxSteps]
	}

	contextFields := req.Context.Fields()
	insights := &models.PlanningInsights{}
	totalScore := 0

	for i, draft := range drafts {
		step := models.Step{
			ID:               uuid.NewString(),
			Index:            i,
			Title:            draft.Title,
			Description:      draft.Description,
			Action:           draft.Action,
			RequiresApproval: draft.RequiresApproval || req.Options.RequireApprovalForAll,
			Status:           models.StepPending,
		}
		if step.Description == "" {
			step.Description = step.Title
		}

		if step.Action.Destructive {
			step.RequiresApproval = true
			if !req.Options.AllowDestructiveActions {
				resp.Warnings = append(resp.Warnings,
					fmt.Sprintf("step %d runs a destructive command and will require approval: %s", i+1, step.Action.Command))
			}
		}

		var matches []pattern.Match
		if p.patterns != nil {
			matches = p.patterns.Query(ctx, pattern.QueryRequest{
				Description: step.Description,
				ActionType:  step.Action.Type,
				Context:     contextFields,
			})
		}

		rec := p.scorer.Score(&step, matches)
		step.Confidence = &rec

		if rec.Risk != models.RiskLow {
			step.Fallbacks = p.generator.Generate(&step, rec)
		}

		totalScore += rec.Score
		if rec.Risk == models.RiskHigh {
			insights.HighRiskSteps++
		}
		if rec.PatternBacked {
			insights.MemoryBackedSteps++
		}
		insights.FallbackPlans += len(step.Fallbacks)

		resp.EstimatedTime += estimateDuration(step.Action.Type)
		task.Steps = append(task.Steps, step)
	}

	stepCount := len(task.Steps)
	insights.OverallConfidence = float64(totalScore) / float64(stepCount)
	memoryFraction := float64(insights.MemoryBackedSteps) / float64(stepCount)
	insights.EstimatedSuccessRate = insights.OverallConfidence +
		(100-insights.OverallConfidence)*memoryWeight*memoryFraction

	task.Insights = insights
	resp.Insights = insights
	resp.Reasoning = fmt.Sprintf(
		"decomposed request into %d steps: %d memory-backed, %d high risk, %d fallback plans prepared; overall confidence %.0f",
		stepCount, insights.MemoryBackedSteps, insights.HighRiskSteps, insights.FallbackPlans, insights.OverallConfidence)

	p.logDebug(resp.Reasoning)
	return resp, nil
}

// estimateDuration gives a rough wall-clock estimate per action type, summed
// into the response's EstimatedTime.
func estimateDuration(t models.ActionType) time.Duration {
	switch t {
	case models.ActionReadFile:
		return 2 * time.Second
	case models.ActionWriteFile, models.ActionCreateFile:
		return 3 * time.Second
	case models.ActionSearchCodebase:
		return 5 * time.Second
	case models.ActionCallModel:
		return 20 * time.Second
	case models.ActionRunCommand:
		return 30 * time.Second
	case models.ActionRequestAssist:
		return time.Minute
	default:
		return 10 * time.Second
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func (p *Planner) logDebug(msg string) {
	if p.log != nil {
		p.log.LogDebug(msg)
	}
}

func (p *Planner) logWarn(msg string) {
	if p.log != nil {
		p.log.LogWarn(msg)
	}
}
