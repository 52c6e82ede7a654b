package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
)

type subscriptionRepository struct {
	mu            sync.RWMutex
	subscriptions map[model.SubscriptionID]*model.Subscription
}

func newSubscriptionRepository() *subscriptionRepository {
	return &subscriptionRepository{
		subscriptions: make(map[model.SubscriptionID]*model.Subscription),
	}
}

func copySubscription(s *model.Subscription) *model.Subscription {
	copied := *s
	copied.TherapeuticAreas = append([]string(nil), s.TherapeuticAreas...)
	copied.CompetitorIDs = append([]model.CompetitorID(nil), s.CompetitorIDs...)
	copied.Channels = append([]string(nil), s.Channels...)
	return &copied
}

func (r *subscriptionRepository) sorted(filter func(*model.Subscription) bool) []*model.Subscription {
	var result []*model.Subscription
	for _, s := range r.subscriptions {
		if filter(s) {
			result = append(result, copySubscription(s))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copySubscription(sub)
	if created.ID == "" {
		created.ID = model.NewSubscriptionID()
	}
	created.CreatedAt = time.Now().UTC()

	r.subscriptions[created.ID] = created
	return copySubscription(created), nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id model.SubscriptionID) (*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subscriptions[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "subscription not found", goerr.V("id", id))
	}
	return copySubscription(s), nil
}

func (r *subscriptionRepository) List(ctx context.Context) ([]*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(*model.Subscription) bool { return true }), nil
}

func (r *subscriptionRepository) ListByOwner(ctx context.Context, owner model.UserID) ([]*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(s *model.Subscription) bool { return s.OwnerUserID == owner }), nil
}

func (r *subscriptionRepository) ListMatching(ctx context.Context, therapeuticArea string, competitorID model.CompetitorID) ([]*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(s *model.Subscription) bool {
		return s.Matches(therapeuticArea, competitorID)
	}), nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id model.SubscriptionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscriptions[id]; !ok {
		return goerr.Wrap(ErrNotFound, "subscription not found", goerr.V("id", id))
	}
	delete(r.subscriptions, id)
	return nil
}
