package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
)

// CreateInsightInput carries the fields of a new insight. A nil RelevanceScore is
// derived from ImpactLevel.
type CreateInsightInput struct {
	Title            string
	Description      string
	Category         types.Category
	TherapeuticArea  string
	CompetitorID     *model.CompetitorID
	ImpactLevel      *types.ImpactLevel
	RelevanceScore   *float64
	Source           string
	PublishedDate    *time.Time
	SourceDocumentID model.DocumentID
}

type InsightUseCase struct {
	repo  interfaces.Repository
	clock func() time.Time
}

func NewInsightUseCase(repo interfaces.Repository, clock func() time.Time) *InsightUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &InsightUseCase{
		repo:  repo,
		clock: clock,
	}
}

func (uc *InsightUseCase) Create(ctx context.Context, p *auth.Principal, input CreateInsightInput) (*model.Insight, error) {
	if err := p.Require(types.RoleAdmin, types.RoleAnalyst); err != nil {
		return nil, err
	}

	insight := &model.Insight{
		Title:            input.Title,
		Description:      input.Description,
		Category:         input.Category,
		TherapeuticArea:  input.TherapeuticArea,
		CompetitorID:     input.CompetitorID,
		ImpactLevel:      input.ImpactLevel,
		RelevanceScore:   model.DeriveRelevance(input.ImpactLevel, input.RelevanceScore),
		Source:           input.Source,
		SourceDocumentID: input.SourceDocumentID,
	}
	if input.PublishedDate != nil {
		insight.PublishedDate = *input.PublishedDate
	} else {
		insight.PublishedDate = truncateToDate(uc.clock())
	}

	if err := insight.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidInput, err.Error())
	}

	created, err := uc.repo.Insight().Create(ctx, insight)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create insight")
	}
	return created, nil
}

func (uc *InsightUseCase) Get(ctx context.Context, p *auth.Principal, id model.InsightID) (*model.Insight, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	insight, err := uc.repo.Insight().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrInsightNotFound, "insight not found", goerr.V(InsightIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get insight", goerr.V(InsightIDKey, id))
	}
	return insight, nil
}

func (uc *InsightUseCase) List(ctx context.Context, p *auth.Principal, filter model.InsightFilter) ([]*model.Insight, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	insights, err := uc.repo.Insight().List(ctx, filter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list insights")
	}
	return insights, nil
}

func (uc *InsightUseCase) Update(ctx context.Context, p *auth.Principal, id model.InsightID, update model.InsightUpdate) (*model.Insight, error) {
	if err := p.Require(types.RoleAdmin, types.RoleAnalyst); err != nil {
		return nil, err
	}

	existing, err := uc.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}

	next, err := update.Apply(existing)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidInput, err.Error(), goerr.V(InsightIDKey, id))
	}

	updated, err := uc.repo.Insight().Update(ctx, next)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrInsightNotFound, "insight not found", goerr.V(InsightIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to update insight", goerr.V(InsightIDKey, id))
	}
	return updated, nil
}

func (uc *InsightUseCase) Delete(ctx context.Context, p *auth.Principal, id model.InsightID) error {
	if err := p.Require(types.RoleAdmin); err != nil {
		return err
	}

	if err := uc.repo.Insight().Delete(ctx, id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return goerr.Wrap(ErrInsightNotFound, "insight not found", goerr.V(InsightIDKey, id))
		}
		return goerr.Wrap(err, "failed to delete insight", goerr.V(InsightIDKey, id))
	}
	return nil
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
