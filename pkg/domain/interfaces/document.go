package interfaces

import (
	"context"

	"github.com/secmon-lab/argus/pkg/domain/model"
)

// DocumentRepository is the read/checkpoint contract over ingested documents
type DocumentRepository interface {
	// Create stores a new document. Returns ErrAlreadyExists when (Source, ExternalID) is taken.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Get retrieves a document by ID
	Get(ctx context.Context, id model.DocumentID) (*model.Document, error)

	// ListUnprocessed returns up to limit documents with Processed=false, oldest IngestedAt first
	ListUnprocessed(ctx context.Context, limit int) ([]*model.Document, error)

	// MarkProcessed sets Processed=true. Marking an already processed document is a no-op.
	MarkProcessed(ctx context.Context, id model.DocumentID) error
}
