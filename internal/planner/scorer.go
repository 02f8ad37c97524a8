package planner

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/harrison/pilot/internal/models"
	"github.com/harrison/pilot/internal/pattern"
)

// Score deltas. All accumulate onto the baseline and the final score is
// clamped to [0,100].
const (
	baselineScore        = 50
	maxMemoryBonus       = 40
	noMemoryPenalty      = -10
	fileLikelyBonus      = 20
	fileUncertainPenalty = -10
	complexPenalty       = -15
)

// Scorer computes a risk-adjusted confidence record for a single step from
// pattern-store matches and static heuristics. Scoring is deterministic:
// identical step and match inputs always produce the same score and factor
// list.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the confidence record for a step given its pattern matches,
// sorted by descending relevance. Internal scoring errors never propagate:
// a malformed step degrades to a zero-confidence, high-risk record.
func (s *Scorer) Score(step *models.Step, matches []pattern.Match) (rec models.ConfidenceRecord) {
	defer func() {
		if r := recover(); r != nil {
			rec = models.ConfidenceRecord{
				Score: 0,
				Risk:  models.RiskHigh,
				Factors: []models.Factor{{
					Name:   "scoring error",
					Delta:  -baselineScore,
					Reason: "step could not be scored, treating as high risk",
				}},
			}
		}
	}()

	score := baselineScore
	var factors []models.Factor
	patternBacked := false

	if len(matches) > 0 {
		best := matches[0]
		scale := best.Relevance / 100
		if scale > 1 {
			scale = 1
		}
		bonus := int(math.Round(maxMemoryBonus * scale * best.Pattern.SuccessRate / 100))
		score += bonus
		patternBacked = true
		factors = append(factors, models.Factor{
			Name:   "memory match found",
			Delta:  bonus,
			Reason: "a previously successful approach matches this step",
		})
	} else {
		score += noMemoryPenalty
		factors = append(factors, models.Factor{
			Name:   "no memory match",
			Delta:  noMemoryPenalty,
			Reason: "no prior pattern covers this step",
		})
	}

	if step.Action.ExpectsExistingFile() {
		if likelyExists(step.Action.Path) {
			score += fileLikelyBonus
			factors = append(factors, models.Factor{
				Name:   "file likely exists",
				Delta:  fileLikelyBonus,
				Reason: "referenced path matches a common project file pattern",
			})
		} else {
			score += fileUncertainPenalty
			factors = append(factors, models.Factor{
				Name:   "file existence uncertain",
				Delta:  fileUncertainPenalty,
				Reason: "referenced path may not exist in the workspace",
			})
		}
	}

	if step.Action.IsComplex() {
		score += complexPenalty
		factors = append(factors, models.Factor{
			Name:   "complex action",
			Delta:  complexPenalty,
			Reason: "action type carries inherent execution risk",
		})
	}

	score = models.ClampScore(score)
	return models.ConfidenceRecord{
		Score:         score,
		Factors:       factors,
		Risk:          models.ClassifyRisk(score),
		PatternBacked: patternBacked,
	}
}

// likelyExists guesses whether a referenced path exists from its name alone.
// Common manifest, config, and documentation files are assumed present.
func likelyExists(path string) bool {
	base := filepath.Base(path)

	if commonFiles[base] {
		return true
	}

	lower := strings.ToLower(base)
	ext := filepath.Ext(lower)
	name := strings.TrimSuffix(lower, ext)

	switch ext {
	case ".json", ".yaml", ".yml", ".toml", ".ini":
		if name == "config" || strings.HasSuffix(name, ".config") || strings.HasPrefix(name, "config.") {
			return true
		}
	case ".md":
		return true
	}

	return false
}

var commonFiles = map[string]bool{
	"package.json":      true,
	"package-lock.json": true,
	"go.mod":            true,
	"go.sum":            true,
	"Makefile":          true,
	"Dockerfile":        true,
	"README.md":         true,
	"LICENSE":           true,
	".gitignore":        true,
	"tsconfig.json":     true,
	"pyproject.toml":    true,
	"Cargo.toml":        true,
}
