package models

import "time"

// PlanContext describes the workspace surroundings of a planning request.
// Context fields participate in pattern signatures and relevance scoring.
type PlanContext struct {
	WorkspaceRoot string   `json:"workspace_root"`
	OpenFiles     []string `json:"open_files,omitempty"`
	CurrentFile   string   `json:"current_file,omitempty"`
	RecentFiles   []string `json:"recent_files,omitempty"`
}

// Fields flattens the context into key/value pairs for pattern matching.
// Only scalar fields are included; file lists are too volatile to match on.
func (c PlanContext) Fields() map[string]string {
	fields := make(map[string]string, 2)
	if c.WorkspaceRoot != "" {
		fields["workspace_root"] = c.WorkspaceRoot
	}
	if c.CurrentFile != "" {
		fields["current_file"] = c.CurrentFile
	}
	return fields
}

// PlanOptions tunes decomposition and approval behavior for one request.
type PlanOptions struct {
	// MaxSteps caps the number of steps in the plan (0 = no cap).
	MaxSteps int `json:"max_steps,omitempty"`

	// RequireApprovalForAll gates every step behind approval, not just
	// destructive ones.
	RequireApprovalForAll bool `json:"require_approval_for_all,omitempty"`

	// AllowDestructiveActions permits destructive commands to be planned.
	// When false, destructive steps are still planned but always gated
	// behind approval.
	AllowDestructiveActions bool `json:"allow_destructive_actions,omitempty"`
}

// PlanRequest is the inbound planning contract.
type PlanRequest struct {
	UserRequest string      `json:"user_request"`
	Context     PlanContext `json:"context"`
	Options     PlanOptions `json:"options"`
}

// PlanResponse is the outbound planning contract: the annotated task plus
// plan-level reasoning and aggregates. A failed decomposition is reported via
// Task.Status, not an error.
type PlanResponse struct {
	Task          *Task             `json:"task"`
	Reasoning     string            `json:"reasoning"`
	EstimatedTime time.Duration     `json:"estimated_time"`
	Warnings      []string          `json:"warnings,omitempty"`
	Insights      *PlanningInsights `json:"insights,omitempty"`
}
