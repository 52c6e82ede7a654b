package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrInsightNotFound      = errors.New("insight not found")
	ErrCompetitorNotFound   = errors.New("competitor not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrDocumentNotFound     = errors.New("document not found")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// Context keys for error values
const (
	InsightIDKey      = "insight_id"
	CompetitorIDKey   = "competitor_id"
	SubscriptionIDKey = "subscription_id"
	NotificationIDKey = "notification_id"
	DocumentIDKey     = "document_id"
	UserIDKey         = "user_id"
)
