package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
)

var (
	ErrNotFound      = interfaces.ErrNotFound
	ErrAlreadyExists = interfaces.ErrAlreadyExists
)

type Firestore struct {
	client       *firestore.Client
	document     *documentRepository
	competitor   *competitorRepository
	insight      *insightRepository
	subscription *subscriptionRepository
	notification *notificationRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix isolates collections, e.g. per test run
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.document.collectionPrefix = prefix
		f.competitor.collectionPrefix = prefix
		f.insight.collectionPrefix = prefix
		f.subscription.collectionPrefix = prefix
		f.notification.collectionPrefix = prefix
	}
}

// New connects to the given database. An empty databaseID selects the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:       client,
		document:     newDocumentRepository(client),
		competitor:   newCompetitorRepository(client),
		insight:      newInsightRepository(client),
		subscription: newSubscriptionRepository(client),
		notification: newNotificationRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func collectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

func (f *Firestore) Document() interfaces.DocumentRepository {
	return f.document
}

func (f *Firestore) Competitor() interfaces.CompetitorRepository {
	return f.competitor
}

func (f *Firestore) Insight() interfaces.InsightRepository {
	return f.insight
}

func (f *Firestore) Subscription() interfaces.SubscriptionRepository {
	return f.subscription
}

func (f *Firestore) Notification() interfaces.NotificationRepository {
	return f.notification
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
