package models

// PlanningInsights is the derived, non-persisted aggregate over all steps in
// a plan. Memory-backed plans are weighted as more trustworthy than
// heuristic-only ones when estimating the end-to-end success rate.
type PlanningInsights struct {
	OverallConfidence    float64 `json:"overall_confidence"`     // mean of per-step scores
	HighRiskSteps        int     `json:"high_risk_steps"`
	MemoryBackedSteps    int     `json:"memory_backed_steps"`
	FallbackPlans        int     `json:"fallback_plans"`
	EstimatedSuccessRate float64 `json:"estimated_success_rate"` // 0-100
}
