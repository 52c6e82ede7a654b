package interfaces

import (
	"context"

	"github.com/secmon-lab/argus/pkg/domain/model"
)

// InsightRepository persists insights
type InsightRepository interface {
	Create(ctx context.Context, insight *model.Insight) (*model.Insight, error)
	Get(ctx context.Context, id model.InsightID) (*model.Insight, error)

	// List returns insights matching filter, newest CreatedAt first
	List(ctx context.Context, filter model.InsightFilter) ([]*model.Insight, error)

	// ListBySourceDocument returns insights derived from the given document
	ListBySourceDocument(ctx context.Context, docID model.DocumentID) ([]*model.Insight, error)

	Update(ctx context.Context, insight *model.Insight) (*model.Insight, error)
	Delete(ctx context.Context, id model.InsightID) error
}
