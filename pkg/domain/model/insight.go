package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/types"
)

const (
	MinRelevanceScore = 0.0
	MaxRelevanceScore = 10.0
)

// InsightID identifies a derived insight
type InsightID string

// NewInsightID generates a new InsightID
func NewInsightID() InsightID {
	return InsightID(newShortID("insight"))
}

// Insight is a classified, scored record derived from a document or written by an analyst
type Insight struct {
	ID               InsightID
	Title            string
	Description      string
	Category         types.Category
	TherapeuticArea  string
	CompetitorID     *CompetitorID
	ImpactLevel      *types.ImpactLevel
	RelevanceScore   *float64
	Source           string
	PublishedDate    time.Time
	SourceDocumentID DocumentID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DeriveRelevance returns the explicit score when given, otherwise the score implied by
// the impact level. Both nil yields nil.
func DeriveRelevance(impact *types.ImpactLevel, explicit *float64) *float64 {
	if explicit != nil {
		v := *explicit
		return &v
	}
	if impact == nil || *impact == "" {
		return nil
	}
	v := impact.RelevanceScore()
	return &v
}

// ValidateRelevanceScore rejects scores outside [0, 10]
func ValidateRelevanceScore(score *float64) error {
	if score == nil {
		return nil
	}
	if *score < MinRelevanceScore || *score > MaxRelevanceScore {
		return goerr.New("relevance score out of range", goerr.V("score", *score))
	}
	return nil
}

// Validate checks the fields required when creating an insight
func (i *Insight) Validate() error {
	if i.Title == "" {
		return goerr.New("insight title is required")
	}
	if i.Category != "" && !i.Category.IsValid() {
		return goerr.New("invalid insight category", goerr.V("category", i.Category))
	}
	return ValidateRelevanceScore(i.RelevanceScore)
}

// InsightUpdate is a partial update. Absent fields are left unchanged; nullable fields
// may be cleared with Null.
type InsightUpdate struct {
	Title           Optional[string]
	Description     Optional[string]
	Category        Optional[types.Category]
	TherapeuticArea Optional[string]
	CompetitorID    Optional[CompetitorID]
	ImpactLevel     Optional[types.ImpactLevel]
	RelevanceScore  Optional[float64]
	PublishedDate   Optional[time.Time]
}

// Apply writes the update onto a copy of insight and returns it.
// When the impact level changes and no score is supplied, the score is re-derived.
func (u InsightUpdate) Apply(insight *Insight) (*Insight, error) {
	updated := *insight

	if v, ok := u.Title.Get(); ok {
		if v == "" {
			return nil, goerr.New("insight title cannot be empty")
		}
		updated.Title = v
	}
	if v, ok := u.Description.Get(); ok {
		updated.Description = v
	}
	if u.Category.IsSet() {
		v, ok := u.Category.Get()
		if !ok || !v.IsValid() {
			return nil, goerr.New("invalid insight category", goerr.V("category", v))
		}
		updated.Category = v
	}
	if v, ok := u.TherapeuticArea.Get(); ok {
		updated.TherapeuticArea = v
	}
	if u.CompetitorID.IsSet() {
		updated.CompetitorID = u.CompetitorID.Ptr()
	}
	if v, ok := u.PublishedDate.Get(); ok {
		updated.PublishedDate = v
	}

	impactChanged := false
	if u.ImpactLevel.IsSet() {
		next := u.ImpactLevel.Ptr()
		impactChanged = !sameImpact(insight.ImpactLevel, next)
		updated.ImpactLevel = next
	}

	switch {
	case u.RelevanceScore.IsSet():
		updated.RelevanceScore = u.RelevanceScore.Ptr()
	case impactChanged:
		updated.RelevanceScore = DeriveRelevance(updated.ImpactLevel, nil)
	}

	if err := ValidateRelevanceScore(updated.RelevanceScore); err != nil {
		return nil, err
	}

	return &updated, nil
}

func sameImpact(a, b *types.ImpactLevel) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// InsightFilter narrows List results; empty fields match everything
type InsightFilter struct {
	TherapeuticArea string
	CompetitorID    CompetitorID
}
