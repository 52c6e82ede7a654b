package interfaces

import (
	"context"

	"github.com/secmon-lab/argus/pkg/domain/model"
)

// NotificationRepository persists notification history
type NotificationRepository interface {
	// Create appends a history row unconditionally
	Create(ctx context.Context, history *model.NotificationHistory) (*model.NotificationHistory, error)

	// CreateUnique appends a history row only if no row exists for (InsightID, UserID).
	// Returns false without writing when one exists.
	CreateUnique(ctx context.Context, history *model.NotificationHistory) (bool, error)

	// Exists reports whether any row exists for (insightID, userID)
	Exists(ctx context.Context, insightID model.InsightID, userID model.UserID) (bool, error)

	Get(ctx context.Context, id model.NotificationID) (*model.NotificationHistory, error)

	// List and ListByUser return rows newest SentAt first
	List(ctx context.Context) ([]*model.NotificationHistory, error)
	ListByUser(ctx context.Context, userID model.UserID) ([]*model.NotificationHistory, error)
	ListByInsight(ctx context.Context, insightID model.InsightID) ([]*model.NotificationHistory, error)

	MarkRead(ctx context.Context, id model.NotificationID) error
}
