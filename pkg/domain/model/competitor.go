package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// CompetitorID identifies a tracked competitor in the entity registry
type CompetitorID string

// NewCompetitorID generates a new CompetitorID
func NewCompetitorID() CompetitorID {
	return CompetitorID(newShortID("comp"))
}

// Competitor is an entity registry record
type Competitor struct {
	ID               CompetitorID
	Name             string
	Headquarters     string
	TherapeuticAreas []string
	ActiveDrugs      []string
	PipelineDrugs    []string
	CreatedAt        time.Time
}

// Validate checks the fields required for a registry record
func (c *Competitor) Validate() error {
	if c.Name == "" {
		return goerr.New("competitor name is required", goerr.V("id", c.ID))
	}
	return nil
}

// KnownEntity returns the reduced {id, name} view handed to the classifier
func (c *Competitor) KnownEntity() KnownEntity {
	return KnownEntity{ID: c.ID, Name: c.Name}
}

// ClinicalTrial is a trial sub-record of a competitor, unique per (CompetitorID, TrialID)
type ClinicalTrial struct {
	ID                  string
	CompetitorID        CompetitorID
	TrialID             string
	DrugName            string
	Phase               string
	Indication          string
	Status              string
	StartDate           time.Time
	EstimatedCompletion *time.Time
	EnrollmentTarget    int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewClinicalTrialID generates the record ID of a new trial sub-record
func NewClinicalTrialID() string {
	return newShortID("trial")
}

// Validate checks the upsert key
func (t *ClinicalTrial) Validate() error {
	if t.TrialID == "" {
		return goerr.New("trial ID is required", goerr.V("competitor_id", t.CompetitorID))
	}
	return nil
}
