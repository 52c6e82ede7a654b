package model

import "github.com/secmon-lab/argus/pkg/domain/types"

// NotAvailable is the placeholder the classifier uses for entity fields it could not extract
const NotAvailable = "N/A"

// KnownEntity is the {id, name} pair the classifier may match a document against
type KnownEntity struct {
	ID   CompetitorID
	Name string
}

// Entities are the named entities extracted from a document
type Entities struct {
	Company    string
	Drug       string
	Phase      string
	Indication string
}

// Classification is the structured result of classifying one document
type Classification struct {
	Summary         string
	TherapeuticArea string
	Category        types.Category
	ImpactLevel     types.ImpactLevel
	RelevanceScore  float64
	Entities        Entities
	MatchedEntityID *CompetitorID
	Tags            []string
}

// DefaultClassification is the safe record used when classification is unavailable
func DefaultClassification() Classification {
	return Classification{
		Summary:         "Analysis unavailable.",
		TherapeuticArea: "General",
		Category:        types.CategoryGeneral,
		ImpactLevel:     types.ImpactLow,
		RelevanceScore:  3.0,
		Entities: Entities{
			Company:    NotAvailable,
			Drug:       NotAvailable,
			Phase:      NotAvailable,
			Indication: NotAvailable,
		},
		Tags: []string{},
	}
}

// IsTrialLike reports whether the classification describes a clinical trial: either the
// category says so or both drug and phase were extracted.
func (c Classification) IsTrialLike() bool {
	if c.Category == types.CategoryClinicalTrial {
		return true
	}
	return c.Entities.Drug != NotAvailable && c.Entities.Phase != NotAvailable
}
