package interfaces

// Repository bundles the stores the pipeline and its collaborators work against.
// Each store only offers single-record atomicity; there is no cross-store transaction.
type Repository interface {
	Document() DocumentRepository
	Competitor() CompetitorRepository
	Insight() InsightRepository
	Subscription() SubscriptionRepository
	Notification() NotificationRepository

	Close() error
}
