package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
)

type competitorRepository struct {
	mu          sync.RWMutex
	competitors map[model.CompetitorID]*model.Competitor
	trials      map[model.CompetitorID]map[string]*model.ClinicalTrial // keyed by TrialID
}

func newCompetitorRepository() *competitorRepository {
	return &competitorRepository{
		competitors: make(map[model.CompetitorID]*model.Competitor),
		trials:      make(map[model.CompetitorID]map[string]*model.ClinicalTrial),
	}
}

func copyCompetitor(c *model.Competitor) *model.Competitor {
	copied := *c
	copied.TherapeuticAreas = append([]string(nil), c.TherapeuticAreas...)
	copied.ActiveDrugs = append([]string(nil), c.ActiveDrugs...)
	copied.PipelineDrugs = append([]string(nil), c.PipelineDrugs...)
	return &copied
}

func copyTrial(t *model.ClinicalTrial) *model.ClinicalTrial {
	copied := *t
	if t.EstimatedCompletion != nil {
		v := *t.EstimatedCompletion
		copied.EstimatedCompletion = &v
	}
	return &copied
}

func (r *competitorRepository) Create(ctx context.Context, competitor *model.Competitor) (*model.Competitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyCompetitor(competitor)
	if created.ID == "" {
		created.ID = model.NewCompetitorID()
	}
	if _, exists := r.competitors[created.ID]; exists {
		return nil, goerr.Wrap(ErrAlreadyExists, "competitor already exists", goerr.V("id", created.ID))
	}
	created.CreatedAt = time.Now().UTC()

	r.competitors[created.ID] = created
	return copyCompetitor(created), nil
}

func (r *competitorRepository) Get(ctx context.Context, id model.CompetitorID) (*model.Competitor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.competitors[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "competitor not found", goerr.V("id", id))
	}
	return copyCompetitor(c), nil
}

func (r *competitorRepository) List(ctx context.Context) ([]*model.Competitor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Competitor, 0, len(r.competitors))
	for _, c := range r.competitors {
		result = append(result, copyCompetitor(c))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *competitorRepository) UpsertTrial(ctx context.Context, competitorID model.CompetitorID, trial *model.ClinicalTrial) (*model.ClinicalTrial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.competitors[competitorID]; !ok {
		return nil, goerr.Wrap(ErrNotFound, "competitor not found", goerr.V("id", competitorID))
	}

	now := time.Now().UTC()
	byTrial := r.trials[competitorID]
	if byTrial == nil {
		byTrial = make(map[string]*model.ClinicalTrial)
		r.trials[competitorID] = byTrial
	}

	upserted := copyTrial(trial)
	upserted.CompetitorID = competitorID
	if existing, ok := byTrial[trial.TrialID]; ok {
		upserted.ID = existing.ID
		upserted.CreatedAt = existing.CreatedAt
	} else {
		upserted.ID = model.NewClinicalTrialID()
		upserted.CreatedAt = now
	}
	upserted.UpdatedAt = now

	byTrial[trial.TrialID] = upserted
	return copyTrial(upserted), nil
}

func (r *competitorRepository) ListTrials(ctx context.Context, competitorID model.CompetitorID) ([]*model.ClinicalTrial, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.competitors[competitorID]; !ok {
		return nil, goerr.Wrap(ErrNotFound, "competitor not found", goerr.V("id", competitorID))
	}

	result := make([]*model.ClinicalTrial, 0, len(r.trials[competitorID]))
	for _, t := range r.trials[competitorID] {
		result = append(result, copyTrial(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TrialID < result[j].TrialID })
	return result, nil
}
