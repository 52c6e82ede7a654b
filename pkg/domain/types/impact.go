package types

import "strings"

// ImpactLevel is the business impact assigned to an insight.
// Values outside the three known levels are kept as-is; they score 0.
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "High"
	ImpactMedium ImpactLevel = "Medium"
	ImpactLow    ImpactLevel = "Low"
)

// IsKnown reports whether the level is High, Medium or Low (case-insensitive)
func (l ImpactLevel) IsKnown() bool {
	switch strings.ToLower(string(l)) {
	case "high", "medium", "low":
		return true
	default:
		return false
	}
}

// RelevanceScore returns the score implied by the impact level
func (l ImpactLevel) RelevanceScore() float64 {
	switch strings.ToLower(string(l)) {
	case "high":
		return 9.0
	case "medium":
		return 6.0
	case "low":
		return 3.0
	default:
		return 0.0
	}
}

// String returns the string representation of the impact level
func (l ImpactLevel) String() string {
	return string(l)
}
