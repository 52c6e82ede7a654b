package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Category is the classification bucket of an insight
type Category string

const (
	CategoryClinicalTrial          Category = "Clinical Trial"
	CategoryRegulatory             Category = "Regulatory"
	CategoryCompetitorIntelligence Category = "Competitor Intelligence"
	CategoryGeneral                Category = "General"
)

// AllCategories returns all valid categories
func AllCategories() []Category {
	return []Category{
		CategoryClinicalTrial,
		CategoryRegulatory,
		CategoryCompetitorIntelligence,
		CategoryGeneral,
	}
}

// IsValid checks if the category is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryClinicalTrial,
		CategoryRegulatory,
		CategoryCompetitorIntelligence,
		CategoryGeneral:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// ParseCategory matches s against the known categories ignoring case and surrounding spaces.
func ParseCategory(s string) (Category, error) {
	trimmed := strings.TrimSpace(s)
	for _, c := range AllCategories() {
		if strings.EqualFold(trimmed, string(c)) {
			return c, nil
		}
	}
	return "", goerr.Wrap(ErrInvalidValue, "invalid category", goerr.V("category", s))
}
