package model

import (
	"time"

	"github.com/secmon-lab/argus/pkg/domain/types"
)

// NotificationID identifies a notification history row
type NotificationID string

// NewNotificationID generates a new NotificationID
func NewNotificationID() NotificationID {
	return NotificationID(newShortID("notif"))
}

// NotificationPayload is the delivered message body
type NotificationPayload struct {
	InsightID       InsightID `json:"insight_id"`
	Title           string    `json:"title,omitempty"`
	Description     string    `json:"description,omitempty"`
	TherapeuticArea string    `json:"therapeutic_area,omitempty"`
	Message         string    `json:"message"`
}

// NotificationHistory records one delivery to one user
type NotificationHistory struct {
	ID             NotificationID
	UserID         UserID
	SubscriptionID SubscriptionID
	InsightID      InsightID
	Status         types.NotificationStatus
	Payload        NotificationPayload
	CorrelationID  string
	Read           bool
	SentAt         time.Time
}
