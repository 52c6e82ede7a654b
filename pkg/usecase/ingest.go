package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

type IngestUseCase struct {
	repo interfaces.Repository
}

func NewIngestUseCase(repo interfaces.Repository) *IngestUseCase {
	return &IngestUseCase{repo: repo}
}

// Ingest stores a new unprocessed document. A document whose (Source, ExternalID) was
// already ingested is skipped: created is false and err is nil.
func (uc *IngestUseCase) Ingest(ctx context.Context, p *auth.Principal, doc *model.Document) (*model.Document, bool, error) {
	if err := p.Require(types.RoleAdmin, types.RoleAnalyst); err != nil {
		return nil, false, err
	}
	if err := doc.Validate(); err != nil {
		return nil, false, goerr.Wrap(ErrInvalidInput, err.Error())
	}

	doc.Processed = false
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}

	created, err := uc.repo.Document().Create(ctx, doc)
	if err != nil {
		if errors.Is(err, interfaces.ErrAlreadyExists) {
			logging.From(ctx).Info("document already ingested",
				"source", doc.Source,
				"external_id", doc.ExternalID)
			return nil, false, nil
		}
		return nil, false, goerr.Wrap(err, "failed to ingest document",
			goerr.V("source", doc.Source),
			goerr.V("external_id", doc.ExternalID))
	}

	logging.From(ctx).Info("document ingested", "document_id", created.ID, "source", created.Source)
	return created, true, nil
}

// Get returns a stored document
func (uc *IngestUseCase) Get(ctx context.Context, p *auth.Principal, id model.DocumentID) (*model.Document, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}
	doc, err := uc.repo.Document().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrDocumentNotFound, "document not found", goerr.V(DocumentIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V(DocumentIDKey, id))
	}
	return doc, nil
}
