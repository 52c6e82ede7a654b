package interfaces

import (
	"context"

	"github.com/secmon-lab/argus/pkg/domain/model"
)

// SubscriptionRepository persists subscriptions
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) (*model.Subscription, error)
	Get(ctx context.Context, id model.SubscriptionID) (*model.Subscription, error)
	List(ctx context.Context) ([]*model.Subscription, error)
	ListByOwner(ctx context.Context, owner model.UserID) ([]*model.Subscription, error)

	// ListMatching returns subscriptions whose TherapeuticAreas contain therapeuticArea OR
	// whose CompetitorIDs contain competitorID. Empty arguments are not used as criteria.
	ListMatching(ctx context.Context, therapeuticArea string, competitorID model.CompetitorID) ([]*model.Subscription, error)

	Delete(ctx context.Context, id model.SubscriptionID) error
}
