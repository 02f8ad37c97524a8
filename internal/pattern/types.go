package pattern

import (
	"time"

	"github.com/harrison/pilot/internal/models"
)

// Pattern is one persisted problem->approach mapping with usage statistics.
// At most one pattern exists per unique signature. Patterns are created on
// first recorded success, updated in place on repeat success, and removed
// only by capacity pruning.
type Pattern struct {
	ID          string            `json:"id"`
	Signature   string            `json:"signature"`
	Description string            `json:"description"`
	ActionType  models.ActionType `json:"action_type"`
	Approach    string            `json:"approach"`
	Context     map[string]string `json:"context,omitempty"`

	UsageCount  int     `json:"usage_count"`
	SuccessRate float64 `json:"success_rate"` // 0-100
	Confidence  float64 `json:"confidence"`   // 0-100

	CreatedAt   time.Time `json:"created_at"`
	LastUsed    time.Time `json:"last_used"`
	LastSuccess time.Time `json:"last_success"`
}

// clone returns a copy so callers never share mutable pattern state with the
// store.
func (p *Pattern) clone() *Pattern {
	cp := *p
	if p.Context != nil {
		cp.Context = make(map[string]string, len(p.Context))
		for k, v := range p.Context {
			cp.Context[k] = v
		}
	}
	return &cp
}

// Match pairs a pattern with its relevance to a query.
type Match struct {
	Pattern   *Pattern `json:"pattern"`
	Relevance float64  `json:"relevance"`
}

// QueryRequest describes what the planner is looking for.
type QueryRequest struct {
	Description string
	ActionType  models.ActionType
	Context     map[string]string

	// Limit caps the number of matches returned (0 = default of 5).
	Limit int
}

// Stats is an aggregate view of the store for reporting.
type Stats struct {
	Count          int
	AvgConfidence  float64
	AvgSuccessRate float64
	TotalUsage     int
	Degraded       bool
}
