package planner

import (
	"context"
	"regexp"
	"strings"

	"github.com/harrison/pilot/internal/models"
)

// DraftStep is what a decomposer hands back: a step sketch with an action
// payload, before confidence scoring and fallback generation.
type DraftStep struct {
	Title            string
	Description      string
	Action           models.Action
	RequiresApproval bool
}

// Decomposer turns a planning request into an ordered list of draft steps.
// Implementations range from deterministic heuristics to model-backed
// reasoning; the planner only relies on this contract.
type Decomposer interface {
	Decompose(ctx context.Context, req models.PlanRequest) ([]DraftStep, error)
}

var (
	pathPattern    = regexp.MustCompile(`[\w@][\w./@-]*\.[A-Za-z0-9]{1,8}`)
	commandPattern = regexp.MustCompile("`([^`]+)`")

	// destructivePattern flags commands that remove or overwrite existing
	// state and therefore always require approval.
	destructivePattern = regexp.MustCompile(`(?i)\brm\s+-[rf]|\bmkfs\b|\bdd\s+if=|--force\b|\bdrop\s+table\b|\btruncate\b|\bdel\s+/s\b`)
)

// inferAction derives an action payload from a natural-language clause. The
// mapping is deterministic so repeated planning of the same request yields
// the same actions.
func inferAction(clause string) models.Action {
	lower := strings.ToLower(clause)
	path := pathPattern.FindString(clause)

	switch {
	case hasVerb(lower, "read", "open", "show", "view", "inspect"):
		if path != "" {
			return models.Action{Type: models.ActionReadFile, Path: path}
		}
		return models.Action{Type: models.ActionSearchCodebase, Query: clause}

	case hasVerb(lower, "create", "scaffold", "generate file"):
		if path != "" {
			return models.Action{Type: models.ActionCreateFile, Path: path}
		}
		return models.Action{Type: models.ActionCallModel, Prompt: clause}

	case hasVerb(lower, "write", "update", "save", "edit", "append", "modify"):
		if path != "" {
			return models.Action{Type: models.ActionWriteFile, Path: path}
		}
		return models.Action{Type: models.ActionCallModel, Prompt: clause}

	case hasVerb(lower, "run", "execute", "invoke", "launch"):
		command := extractCommand(clause)
		return models.Action{
			Type:        models.ActionRunCommand,
			Command:     command,
			Destructive: destructivePattern.MatchString(command),
		}

	case hasVerb(lower, "search", "find", "locate", "grep", "look for"):
		return models.Action{Type: models.ActionSearchCodebase, Query: stripVerb(clause)}

	default:
		return models.Action{Type: models.ActionCallModel, Prompt: clause}
	}
}

func hasVerb(lower string, verbs ...string) bool {
	for _, v := range verbs {
		if strings.HasPrefix(lower, v+" ") || strings.Contains(lower, " "+v+" ") {
			return true
		}
	}
	return false
}

// extractCommand pulls a shell command out of a clause: backtick-quoted text
// wins, otherwise everything after the first run-like verb.
func extractCommand(clause string) string {
	if m := commandPattern.FindStringSubmatch(clause); m != nil {
		return strings.TrimSpace(m[1])
	}
	lower := strings.ToLower(clause)
	for _, verb := range []string{"run ", "execute ", "invoke ", "launch "} {
		if idx := strings.Index(lower, verb); idx >= 0 {
			return strings.TrimSpace(clause[idx+len(verb):])
		}
	}
	return strings.TrimSpace(clause)
}

// stripVerb removes a leading search verb so the remainder becomes the query.
func stripVerb(clause string) string {
	lower := strings.ToLower(clause)
	for _, verb := range []string{"search for ", "search ", "find ", "locate ", "grep ", "look for "} {
		if strings.HasPrefix(lower, verb) {
			return strings.TrimSpace(clause[len(verb):])
		}
	}
	return strings.TrimSpace(clause)
}

// clampTitle shortens a clause into a step title.
func clampTitle(clause string) string {
	title := strings.TrimSpace(clause)
	if len(title) > 60 {
		title = strings.TrimSpace(title[:57]) + "..."
	}
	return title
}
