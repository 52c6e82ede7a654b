package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
)

// ChannelSlack asks for Slack delivery in addition to the history row
const ChannelSlack = "slack"

type CreateSubscriptionInput struct {
	TherapeuticAreas []string
	CompetitorIDs    []model.CompetitorID
	Channels         []string
}

type SubscriptionUseCase struct {
	repo interfaces.Repository
}

func NewSubscriptionUseCase(repo interfaces.Repository) *SubscriptionUseCase {
	return &SubscriptionUseCase{repo: repo}
}

// Create registers a subscription owned by the calling principal
func (uc *SubscriptionUseCase) Create(ctx context.Context, p *auth.Principal, input CreateSubscriptionInput) (*model.Subscription, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	sub := &model.Subscription{
		OwnerUserID:      p.UserID,
		TherapeuticAreas: input.TherapeuticAreas,
		CompetitorIDs:    input.CompetitorIDs,
		Channels:         input.Channels,
	}
	if err := sub.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidInput, err.Error(), goerr.V(UserIDKey, p.UserID))
	}

	created, err := uc.repo.Subscription().Create(ctx, sub)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create subscription", goerr.V(UserIDKey, p.UserID))
	}
	return created, nil
}

func (uc *SubscriptionUseCase) ListMine(ctx context.Context, p *auth.Principal) ([]*model.Subscription, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	subs, err := uc.repo.Subscription().ListByOwner(ctx, p.UserID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list subscriptions", goerr.V(UserIDKey, p.UserID))
	}
	return subs, nil
}

func (uc *SubscriptionUseCase) ListAll(ctx context.Context, p *auth.Principal) ([]*model.Subscription, error) {
	if err := p.Require(types.RoleAdmin); err != nil {
		return nil, err
	}

	subs, err := uc.repo.Subscription().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list subscriptions")
	}
	return subs, nil
}

// Delete removes a subscription. Only its owner or an ADMIN may delete it; other
// callers see it as missing.
func (uc *SubscriptionUseCase) Delete(ctx context.Context, p *auth.Principal, id model.SubscriptionID) error {
	if err := p.Require(); err != nil {
		return err
	}

	sub, err := uc.repo.Subscription().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return goerr.Wrap(ErrSubscriptionNotFound, "subscription not found", goerr.V(SubscriptionIDKey, id))
		}
		return goerr.Wrap(err, "failed to get subscription", goerr.V(SubscriptionIDKey, id))
	}
	if sub.OwnerUserID != p.UserID && !p.IsAdmin() {
		return goerr.Wrap(ErrSubscriptionNotFound, "subscription not found", goerr.V(SubscriptionIDKey, id))
	}

	if err := uc.repo.Subscription().Delete(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete subscription", goerr.V(SubscriptionIDKey, id))
	}
	return nil
}
