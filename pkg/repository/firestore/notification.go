package firestore

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type payloadDoc struct {
	InsightID       string `firestore:"insight_id"`
	Title           string `firestore:"title"`
	Description     string `firestore:"description"`
	TherapeuticArea string `firestore:"therapeutic_area"`
	Message         string `firestore:"message"`
}

type notificationDoc struct {
	ID             string     `firestore:"id"`
	UserID         string     `firestore:"user_id"`
	SubscriptionID string     `firestore:"subscription_id"`
	InsightID      string     `firestore:"insight_id"`
	Status         string     `firestore:"status"`
	Payload        payloadDoc `firestore:"payload"`
	CorrelationID  string     `firestore:"correlation_id"`
	Read           bool       `firestore:"read"`
	SentAt         time.Time  `firestore:"sent_at"`
}

type notificationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newNotificationRepository(client *firestore.Client) *notificationRepository {
	return &notificationRepository{client: client}
}

func (r *notificationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "notification_history"))
}

// keys holds one marker document per (insight, user) pair written by CreateUnique
func (r *notificationRepository) keys() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "notification_keys"))
}

type notificationKeyDoc struct {
	NotificationID string    `firestore:"notification_id"`
	CreatedAt      time.Time `firestore:"created_at"`
}

// notificationKey is the marker document ID of a pair. Document IDs must not contain
// '/' and '_' separates the two parts, so both are escaped.
func notificationKey(insightID model.InsightID, userID model.UserID) string {
	escape := strings.NewReplacer("%", "%25", "/", "%2F", "_", "%5F")
	return escape.Replace(string(insightID)) + "_" + escape.Replace(string(userID))
}

func notificationToDoc(h *model.NotificationHistory) *notificationDoc {
	return &notificationDoc{
		ID:             string(h.ID),
		UserID:         string(h.UserID),
		SubscriptionID: string(h.SubscriptionID),
		InsightID:      string(h.InsightID),
		Status:         string(h.Status),
		Payload: payloadDoc{
			InsightID:       string(h.Payload.InsightID),
			Title:           h.Payload.Title,
			Description:     h.Payload.Description,
			TherapeuticArea: h.Payload.TherapeuticArea,
			Message:         h.Payload.Message,
		},
		CorrelationID: h.CorrelationID,
		Read:          h.Read,
		SentAt:        h.SentAt,
	}
}

func notificationToModel(doc *notificationDoc) *model.NotificationHistory {
	return &model.NotificationHistory{
		ID:             model.NotificationID(doc.ID),
		UserID:         model.UserID(doc.UserID),
		SubscriptionID: model.SubscriptionID(doc.SubscriptionID),
		InsightID:      model.InsightID(doc.InsightID),
		Status:         types.NotificationStatus(doc.Status),
		Payload: model.NotificationPayload{
			InsightID:       model.InsightID(doc.Payload.InsightID),
			Title:           doc.Payload.Title,
			Description:     doc.Payload.Description,
			TherapeuticArea: doc.Payload.TherapeuticArea,
			Message:         doc.Payload.Message,
		},
		CorrelationID: doc.CorrelationID,
		Read:          doc.Read,
		SentAt:        doc.SentAt,
	}
}

func prepareHistory(h *model.NotificationHistory) *notificationDoc {
	created := *h
	if created.ID == "" {
		created.ID = model.NewNotificationID()
	}
	if created.SentAt.IsZero() {
		created.SentAt = time.Now().UTC()
	}
	return notificationToDoc(&created)
}

func (r *notificationRepository) pairQuery(insightID model.InsightID, userID model.UserID) firestore.Query {
	return r.collection().
		Where("insight_id", "==", string(insightID)).
		Where("user_id", "==", string(userID)).
		Limit(1)
}

func (r *notificationRepository) Create(ctx context.Context, history *model.NotificationHistory) (*model.NotificationHistory, error) {
	doc := prepareHistory(history)
	if _, err := r.collection().Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to create notification", goerr.V("id", doc.ID))
	}
	return notificationToModel(doc), nil
}

func (r *notificationRepository) CreateUnique(ctx context.Context, history *model.NotificationHistory) (bool, error) {
	doc := prepareHistory(history)
	keyRef := r.keys().Doc(notificationKey(history.InsightID, history.UserID))

	created := false
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		if _, err := tx.Get(keyRef); err == nil {
			return nil
		} else if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to check notification key")
		}

		if err := tx.Create(keyRef, &notificationKeyDoc{NotificationID: doc.ID, CreatedAt: doc.SentAt}); err != nil {
			return err
		}
		created = true
		return tx.Create(r.collection().Doc(doc.ID), doc)
	})
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to create notification",
			goerr.V("insight_id", history.InsightID),
			goerr.V("user_id", history.UserID))
	}
	return created, nil
}

func (r *notificationRepository) Exists(ctx context.Context, insightID model.InsightID, userID model.UserID) (bool, error) {
	iter := r.pairQuery(insightID, userID).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to check notification history",
			goerr.V("insight_id", insightID),
			goerr.V("user_id", userID))
	}
	return true, nil
}

func (r *notificationRepository) Get(ctx context.Context, id model.NotificationID) (*model.NotificationHistory, error) {
	snap, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get notification", goerr.V("id", id))
	}

	var doc notificationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal notification", goerr.V("id", id))
	}
	return notificationToModel(&doc), nil
}

func (r *notificationRepository) list(ctx context.Context, q firestore.Query) ([]*model.NotificationHistory, error) {
	iter := q.OrderBy("sent_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var result []*model.NotificationHistory
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate notifications")
		}

		var doc notificationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal notification", goerr.V("id", snap.Ref.ID))
		}
		result = append(result, notificationToModel(&doc))
	}
	return result, nil
}

func (r *notificationRepository) List(ctx context.Context) ([]*model.NotificationHistory, error) {
	return r.list(ctx, r.collection().Query)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID model.UserID) ([]*model.NotificationHistory, error) {
	return r.list(ctx, r.collection().Where("user_id", "==", string(userID)))
}

func (r *notificationRepository) ListByInsight(ctx context.Context, insightID model.InsightID) ([]*model.NotificationHistory, error) {
	return r.list(ctx, r.collection().Where("insight_id", "==", string(insightID)))
}

func (r *notificationRepository) MarkRead(ctx context.Context, id model.NotificationID) error {
	_, err := r.collection().Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to mark notification read", goerr.V("id", id))
	}
	return nil
}
