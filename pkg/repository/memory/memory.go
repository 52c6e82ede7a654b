package memory

import (
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
)

var (
	ErrNotFound      = interfaces.ErrNotFound
	ErrAlreadyExists = interfaces.ErrAlreadyExists
)

// Memory is an in-process Repository for development and tests
type Memory struct {
	document     *documentRepository
	competitor   *competitorRepository
	insight      *insightRepository
	subscription *subscriptionRepository
	notification *notificationRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		document:     newDocumentRepository(),
		competitor:   newCompetitorRepository(),
		insight:      newInsightRepository(),
		subscription: newSubscriptionRepository(),
		notification: newNotificationRepository(),
	}
}

func (m *Memory) Document() interfaces.DocumentRepository {
	return m.document
}

func (m *Memory) Competitor() interfaces.CompetitorRepository {
	return m.competitor
}

func (m *Memory) Insight() interfaces.InsightRepository {
	return m.insight
}

func (m *Memory) Subscription() interfaces.SubscriptionRepository {
	return m.subscription
}

func (m *Memory) Notification() interfaces.NotificationRepository {
	return m.notification
}

func (m *Memory) Close() error {
	return nil
}
