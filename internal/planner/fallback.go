package planner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/harrison/pilot/internal/models"
)

// Fallback confidence estimates. Searching the workspace is usually safe,
// creating a default file even safer; asking an operator is the last resort.
const (
	searchFallbackConfidence  = 75
	defaultCreateConfidence   = 80
	assistFallbackConfidence  = 55
	maxFallbacksPerStep       = 3
)

// Generator produces ranked fallback plans for medium- and high-risk steps.
// Low-risk steps get none.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns zero to three fallback plans for the step, in the order
// the execution engine should attempt them.
func (g *Generator) Generate(step *models.Step, rec models.ConfidenceRecord) []models.FallbackPlan {
	if rec.Risk == models.RiskLow {
		return nil
	}

	var plans []models.FallbackPlan

	if path := step.Action.ReferencesPath(); path != "" {
		plans = append(plans, models.FallbackPlan{
			ID:      uuid.NewString(),
			StepID:  step.ID,
			Trigger: "primary file access failed with not-found",
			Action: models.Action{
				Type:  models.ActionSearchCodebase,
				Query: filepath.Base(path),
			},
			Confidence: searchFallbackConfidence,
			Rationale:  fmt.Sprintf("the file may live elsewhere; search the workspace for %q before failing", filepath.Base(path)),
		})
	}

	if step.Action.ExpectsExistingFile() {
		plans = append(plans, models.FallbackPlan{
			ID:      uuid.NewString(),
			StepID:  step.ID,
			Trigger: "primary file read failed with not-found",
			Action: models.Action{
				Type:    models.ActionCreateFile,
				Path:    step.Action.Path,
				Content: defaultTemplate(step.Action.Path),
			},
			Confidence: defaultCreateConfidence,
			Rationale:  fmt.Sprintf("%s may not exist yet; create a sensible default in its place", step.Action.Path),
		})
	}

	if rec.Risk == models.RiskHigh {
		plans = append(plans, models.FallbackPlan{
			ID:      uuid.NewString(),
			StepID:  step.ID,
			Trigger: "primary action and automated fallbacks failed",
			Action: models.Action{
				Type:   models.ActionRequestAssist,
				Prompt: fmt.Sprintf("Step %q failed and no automated recovery applies. Please advise.", step.Title),
			},
			Confidence: assistFallbackConfidence,
			Rationale:  "high-risk step with no reliable automated recovery; surface to an operator for guidance",
		})
	}

	if len(plans) > maxFallbacksPerStep {
		plans = plans[:maxFallbacksPerStep]
	}
	return plans
}

// defaultTemplate returns starter content appropriate for the file type.
func defaultTemplate(path string) string {
	base := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "{}\n"
	case ".yaml", ".yml":
		return "# " + base + "\n"
	case ".md":
		return "# " + strings.TrimSuffix(base, filepath.Ext(base)) + "\n"
	case ".toml", ".ini":
		return "# " + base + "\n"
	default:
		return ""
	}
}
