package models

// FallbackPlan is a pre-generated alternative to attempt when a step's
// primary action fails. Plans are generated at planning time, never mutated,
// and consumed at most once during execution.
type FallbackPlan struct {
	ID         string `json:"id"`
	StepID     string `json:"step_id"`
	Trigger    string `json:"trigger"` // condition under which this fallback applies
	Action     Action `json:"action"`
	Confidence int    `json:"confidence"` // independently estimated, 0-100
	Rationale  string `json:"rationale"`
}
