package interfaces

import (
	"context"

	"github.com/secmon-lab/argus/pkg/domain/model"
)

// CompetitorRepository is the entity registry and its trial sub-records
type CompetitorRepository interface {
	Create(ctx context.Context, competitor *model.Competitor) (*model.Competitor, error)
	Get(ctx context.Context, id model.CompetitorID) (*model.Competitor, error)

	// List returns every registry record; the pipeline reads it once per tick
	List(ctx context.Context) ([]*model.Competitor, error)

	// UpsertTrial creates or updates the trial keyed by (competitorID, trial.TrialID).
	// Returns ErrNotFound if the competitor does not exist.
	UpsertTrial(ctx context.Context, competitorID model.CompetitorID, trial *model.ClinicalTrial) (*model.ClinicalTrial, error)

	ListTrials(ctx context.Context, competitorID model.CompetitorID) ([]*model.ClinicalTrial, error)
}
