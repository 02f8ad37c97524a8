package models

// RiskLevel classifies a confidence score into an execution risk band.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"    // score >= 70
	RiskMedium RiskLevel = "medium" // score 40-69
	RiskHigh   RiskLevel = "high"   // score < 40
)

// Factor is one named contribution to a confidence score.
type Factor struct {
	Name   string `json:"name"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// ConfidenceRecord holds the risk assessment computed for a single step.
// Factors are listed in the order they were applied so the score can be
// reproduced from the record.
type ConfidenceRecord struct {
	Score         int       `json:"score"` // 0-100
	Factors       []Factor  `json:"factors"`
	Risk          RiskLevel `json:"risk"`
	PatternBacked bool      `json:"pattern_backed"`
}

// ClassifyRisk maps a confidence score to its risk band.
func ClassifyRisk(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskLow
	case score >= 40:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// ClampScore bounds a raw score accumulation to the valid [0,100] range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
