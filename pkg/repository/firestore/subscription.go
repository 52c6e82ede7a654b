package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type subscriptionDoc struct {
	ID               string    `firestore:"id"`
	OwnerUserID      string    `firestore:"owner_user_id"`
	TherapeuticAreas []string  `firestore:"therapeutic_areas"`
	CompetitorIDs    []string  `firestore:"competitor_ids"`
	Channels         []string  `firestore:"channels"`
	CreatedAt        time.Time `firestore:"created_at"`
}

type subscriptionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newSubscriptionRepository(client *firestore.Client) *subscriptionRepository {
	return &subscriptionRepository{client: client}
}

func (r *subscriptionRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "subscriptions"))
}

func subscriptionToDoc(s *model.Subscription) *subscriptionDoc {
	doc := &subscriptionDoc{
		ID:               string(s.ID),
		OwnerUserID:      string(s.OwnerUserID),
		TherapeuticAreas: s.TherapeuticAreas,
		Channels:         s.Channels,
		CreatedAt:        s.CreatedAt,
	}
	for _, id := range s.CompetitorIDs {
		doc.CompetitorIDs = append(doc.CompetitorIDs, string(id))
	}
	return doc
}

func subscriptionToModel(doc *subscriptionDoc) *model.Subscription {
	s := &model.Subscription{
		ID:               model.SubscriptionID(doc.ID),
		OwnerUserID:      model.UserID(doc.OwnerUserID),
		TherapeuticAreas: doc.TherapeuticAreas,
		Channels:         doc.Channels,
		CreatedAt:        doc.CreatedAt,
	}
	for _, id := range doc.CompetitorIDs {
		s.CompetitorIDs = append(s.CompetitorIDs, model.CompetitorID(id))
	}
	return s
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	created := *sub
	if created.ID == "" {
		created.ID = model.NewSubscriptionID()
	}
	created.CreatedAt = time.Now().UTC()
	doc := subscriptionToDoc(&created)

	if _, err := r.collection().Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to create subscription", goerr.V("id", doc.ID))
	}
	return subscriptionToModel(doc), nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id model.SubscriptionID) (*model.Subscription, error) {
	snap, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "subscription not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get subscription", goerr.V("id", id))
	}

	var doc subscriptionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal subscription", goerr.V("id", id))
	}
	return subscriptionToModel(&doc), nil
}

// collect runs every query and merges results by ID, oldest first
func (r *subscriptionRepository) collect(ctx context.Context, queries ...firestore.Query) ([]*model.Subscription, error) {
	seen := make(map[string]struct{})
	var subs []*model.Subscription

	for _, q := range queries {
		iter := q.Documents(ctx)
		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to iterate subscriptions")
			}
			if _, ok := seen[snap.Ref.ID]; ok {
				continue
			}
			seen[snap.Ref.ID] = struct{}{}

			var doc subscriptionDoc
			if err := snap.DataTo(&doc); err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to unmarshal subscription", goerr.V("id", snap.Ref.ID))
			}
			subs = append(subs, subscriptionToModel(&doc))
		}
		iter.Stop()
	}

	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

func (r *subscriptionRepository) List(ctx context.Context) ([]*model.Subscription, error) {
	return r.collect(ctx, r.collection().Query)
}

func (r *subscriptionRepository) ListByOwner(ctx context.Context, owner model.UserID) ([]*model.Subscription, error) {
	return r.collect(ctx, r.collection().Where("owner_user_id", "==", string(owner)))
}

func (r *subscriptionRepository) ListMatching(ctx context.Context, therapeuticArea string, competitorID model.CompetitorID) ([]*model.Subscription, error) {
	var queries []firestore.Query
	if therapeuticArea != "" {
		queries = append(queries, r.collection().Where("therapeutic_areas", "array-contains", therapeuticArea))
	}
	if competitorID != "" {
		queries = append(queries, r.collection().Where("competitor_ids", "array-contains", string(competitorID)))
	}
	if len(queries) == 0 {
		return nil, nil
	}
	return r.collect(ctx, queries...)
}

func (r *subscriptionRepository) Delete(ctx context.Context, id model.SubscriptionID) error {
	ref := r.collection().Doc(string(id))

	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "subscription not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get subscription", goerr.V("id", id))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete subscription", goerr.V("id", id))
	}
	return nil
}
