package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

type CompetitorUseCase struct {
	repo interfaces.Repository
}

func NewCompetitorUseCase(repo interfaces.Repository) *CompetitorUseCase {
	return &CompetitorUseCase{repo: repo}
}

func (uc *CompetitorUseCase) Create(ctx context.Context, p *auth.Principal, competitor *model.Competitor) (*model.Competitor, error) {
	if err := p.Require(types.RoleAdmin, types.RoleAnalyst); err != nil {
		return nil, err
	}
	if err := competitor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidInput, err.Error())
	}

	created, err := uc.repo.Competitor().Create(ctx, competitor)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create competitor", goerr.V("name", competitor.Name))
	}
	return created, nil
}

func (uc *CompetitorUseCase) Get(ctx context.Context, p *auth.Principal, id model.CompetitorID) (*model.Competitor, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	competitor, err := uc.repo.Competitor().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrCompetitorNotFound, "competitor not found", goerr.V(CompetitorIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get competitor", goerr.V(CompetitorIDKey, id))
	}
	return competitor, nil
}

func (uc *CompetitorUseCase) List(ctx context.Context, p *auth.Principal) ([]*model.Competitor, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	competitors, err := uc.repo.Competitor().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list competitors")
	}
	return competitors, nil
}

// AddTrial creates or updates the trial keyed by (competitorID, trial.TrialID)
func (uc *CompetitorUseCase) AddTrial(ctx context.Context, p *auth.Principal, competitorID model.CompetitorID, trial *model.ClinicalTrial) (*model.ClinicalTrial, error) {
	if err := p.Require(types.RoleAdmin, types.RoleAnalyst); err != nil {
		return nil, err
	}
	if err := trial.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidInput, err.Error(), goerr.V(CompetitorIDKey, competitorID))
	}

	upserted, err := uc.repo.Competitor().UpsertTrial(ctx, competitorID, trial)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrCompetitorNotFound, "competitor not found", goerr.V(CompetitorIDKey, competitorID))
		}
		return nil, goerr.Wrap(err, "failed to upsert trial",
			goerr.V(CompetitorIDKey, competitorID),
			goerr.V("trial_id", trial.TrialID))
	}
	return upserted, nil
}

func (uc *CompetitorUseCase) ListTrials(ctx context.Context, p *auth.Principal, competitorID model.CompetitorID) ([]*model.ClinicalTrial, error) {
	if _, err := uc.Get(ctx, p, competitorID); err != nil {
		return nil, err
	}

	trials, err := uc.repo.Competitor().ListTrials(ctx, competitorID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list trials", goerr.V(CompetitorIDKey, competitorID))
	}
	return trials, nil
}

// Seed creates each competitor whose name is not yet registered. Names compare
// case-insensitively. Returns the number of competitors created.
func (uc *CompetitorUseCase) Seed(ctx context.Context, p *auth.Principal, seeds []*model.Competitor) (int, error) {
	if err := p.Require(types.RoleAdmin); err != nil {
		return 0, err
	}

	existing, err := uc.repo.Competitor().List(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list competitors")
	}
	known := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		known[strings.ToLower(c.Name)] = struct{}{}
	}

	created := 0
	for _, seed := range seeds {
		key := strings.ToLower(seed.Name)
		if _, ok := known[key]; ok {
			continue
		}
		c, err := uc.Create(ctx, p, seed)
		if err != nil {
			return created, err
		}
		known[key] = struct{}{}
		created++
		logging.From(ctx).Info("seeded competitor", "id", c.ID, "name", c.Name)
	}
	return created, nil
}
