package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
)

type notificationRepository struct {
	mu      sync.RWMutex
	history map[model.NotificationID]*model.NotificationHistory
}

func newNotificationRepository() *notificationRepository {
	return &notificationRepository{
		history: make(map[model.NotificationID]*model.NotificationHistory),
	}
}

func copyHistory(h *model.NotificationHistory) *model.NotificationHistory {
	copied := *h
	return &copied
}

func (r *notificationRepository) insert(h *model.NotificationHistory) *model.NotificationHistory {
	created := copyHistory(h)
	if created.ID == "" {
		created.ID = model.NewNotificationID()
	}
	if created.SentAt.IsZero() {
		created.SentAt = time.Now().UTC()
	}
	r.history[created.ID] = created
	return copyHistory(created)
}

func (r *notificationRepository) exists(insightID model.InsightID, userID model.UserID) bool {
	for _, h := range r.history {
		if h.InsightID == insightID && h.UserID == userID {
			return true
		}
	}
	return false
}

func (r *notificationRepository) Create(ctx context.Context, history *model.NotificationHistory) (*model.NotificationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insert(history), nil
}

func (r *notificationRepository) CreateUnique(ctx context.Context, history *model.NotificationHistory) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exists(history.InsightID, history.UserID) {
		return false, nil
	}
	r.insert(history)
	return true, nil
}

func (r *notificationRepository) Exists(ctx context.Context, insightID model.InsightID, userID model.UserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.exists(insightID, userID), nil
}

func (r *notificationRepository) Get(ctx context.Context, id model.NotificationID) (*model.NotificationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.history[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", id))
	}
	return copyHistory(h), nil
}

func (r *notificationRepository) listWhere(filter func(*model.NotificationHistory) bool) []*model.NotificationHistory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.NotificationHistory
	for _, h := range r.history {
		if filter(h) {
			result = append(result, copyHistory(h))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SentAt.After(result[j].SentAt)
	})
	return result
}

func (r *notificationRepository) List(ctx context.Context) ([]*model.NotificationHistory, error) {
	return r.listWhere(func(*model.NotificationHistory) bool { return true }), nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID model.UserID) ([]*model.NotificationHistory, error) {
	return r.listWhere(func(h *model.NotificationHistory) bool { return h.UserID == userID }), nil
}

func (r *notificationRepository) ListByInsight(ctx context.Context, insightID model.InsightID) ([]*model.NotificationHistory, error) {
	return r.listWhere(func(h *model.NotificationHistory) bool { return h.InsightID == insightID }), nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id model.NotificationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.history[id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", id))
	}
	h.Read = true
	return nil
}
