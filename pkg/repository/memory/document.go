package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
)

type documentRepository struct {
	mu         sync.RWMutex
	documents  map[model.DocumentID]*model.Document
	byExternal map[string]model.DocumentID
}

func newDocumentRepository() *documentRepository {
	return &documentRepository{
		documents:  make(map[model.DocumentID]*model.Document),
		byExternal: make(map[string]model.DocumentID),
	}
}

func externalKey(source, externalID string) string {
	return source + "\x00" + externalID
}

func copyDocument(d *model.Document) *model.Document {
	copied := *d
	if d.PublishedDate != nil {
		t := *d.PublishedDate
		copied.PublishedDate = &t
	}
	return &copied
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := externalKey(doc.Source, doc.ExternalID)
	if existing, ok := r.byExternal[key]; ok {
		return nil, goerr.Wrap(ErrAlreadyExists, "document already ingested",
			goerr.V("source", doc.Source),
			goerr.V("external_id", doc.ExternalID),
			goerr.V("id", existing))
	}

	created := copyDocument(doc)
	if created.ID == "" {
		created.ID = model.NewDocumentID()
	}
	if created.IngestedAt.IsZero() {
		created.IngestedAt = time.Now().UTC()
	}

	r.documents[created.ID] = created
	r.byExternal[key] = created.ID
	return copyDocument(created), nil
}

func (r *documentRepository) Get(ctx context.Context, id model.DocumentID) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.documents[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "document not found", goerr.V("id", id))
	}
	return copyDocument(doc), nil
}

func (r *documentRepository) ListUnprocessed(ctx context.Context, limit int) ([]*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*model.Document
	for _, doc := range r.documents {
		if !doc.Processed {
			pending = append(pending, copyDocument(doc))
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].IngestedAt.Equal(pending[j].IngestedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].IngestedAt.Before(pending[j].IngestedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *documentRepository) MarkProcessed(ctx context.Context, id model.DocumentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.documents[id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "document not found", goerr.V("id", id))
	}
	doc.Processed = true
	return nil
}
