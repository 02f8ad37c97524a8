package planner

import (
	"context"
	"regexp"
	"strings"

	"github.com/harrison/pilot/internal/models"
)

// RuleDecomposer splits a request into steps with deterministic heuristics:
// clause boundaries become step boundaries and each clause's action is
// inferred from its leading verb. It needs no external backend, making it the
// default when no model is configured.
type RuleDecomposer struct{}

// NewRuleDecomposer creates a RuleDecomposer.
func NewRuleDecomposer() *RuleDecomposer {
	return &RuleDecomposer{}
}

var (
	clauseSeparator = regexp.MustCompile(`(?i)\s*(?:;|,?\s+then\s+|,?\s+and then\s+|\n+)\s*`)
	listMarker      = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s+`)
)

// Decompose splits the request on clause boundaries (newlines, semicolons,
// "then" connectives) and infers one action per clause. Empty clauses are
// dropped; an empty request yields zero steps.
func (d *RuleDecomposer) Decompose(ctx context.Context, req models.PlanRequest) ([]DraftStep, error) {
	clauses := clauseSeparator.Split(req.UserRequest, -1)

	var drafts []DraftStep
	for _, clause := range clauses {
		clause = strings.TrimSpace(listMarker.ReplaceAllString(clause, ""))
		if clause == "" {
			continue
		}

		action := inferAction(clause)
		drafts = append(drafts, DraftStep{
			Title:            clampTitle(clause),
			Description:      clause,
			Action:           action,
			RequiresApproval: action.Destructive,
		})
	}
	return drafts, nil
}
