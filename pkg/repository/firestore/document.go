package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type documentDoc struct {
	ID            string     `firestore:"id"`
	Source        string     `firestore:"source"`
	ExternalID    string     `firestore:"external_id"`
	URL           string     `firestore:"url"`
	Title         string     `firestore:"title"`
	RawContent    string     `firestore:"raw_content"`
	PublishedDate *time.Time `firestore:"published_date"`
	Processed     bool       `firestore:"processed"`
	IngestedAt    time.Time  `firestore:"ingested_at"`
}

type documentRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newDocumentRepository(client *firestore.Client) *documentRepository {
	return &documentRepository{client: client}
}

func (r *documentRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "documents"))
}

func documentToDoc(d *model.Document) *documentDoc {
	return &documentDoc{
		ID:            string(d.ID),
		Source:        d.Source,
		ExternalID:    d.ExternalID,
		URL:           d.URL,
		Title:         d.Title,
		RawContent:    d.RawContent,
		PublishedDate: d.PublishedDate,
		Processed:     d.Processed,
		IngestedAt:    d.IngestedAt,
	}
}

func documentToModel(doc *documentDoc) *model.Document {
	return &model.Document{
		ID:            model.DocumentID(doc.ID),
		Source:        doc.Source,
		ExternalID:    doc.ExternalID,
		URL:           doc.URL,
		Title:         doc.Title,
		RawContent:    doc.RawContent,
		PublishedDate: doc.PublishedDate,
		Processed:     doc.Processed,
		IngestedAt:    doc.IngestedAt,
	}
}

func (r *documentRepository) Create(ctx context.Context, d *model.Document) (*model.Document, error) {
	created := *d
	if created.ID == "" {
		created.ID = model.NewDocumentID()
	}
	if created.IngestedAt.IsZero() {
		created.IngestedAt = time.Now().UTC()
	}
	doc := documentToDoc(&created)

	dup := r.collection().
		Where("source", "==", d.Source).
		Where("external_id", "==", d.ExternalID).
		Limit(1)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		iter := tx.Documents(dup)
		defer iter.Stop()

		_, err := iter.Next()
		if err == nil {
			return goerr.Wrap(ErrAlreadyExists, "document already ingested",
				goerr.V("source", d.Source),
				goerr.V("external_id", d.ExternalID))
		}
		if err != iterator.Done {
			return goerr.Wrap(err, "failed to check existing document")
		}

		return tx.Create(r.collection().Doc(doc.ID), doc)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create document", goerr.V("id", doc.ID))
	}

	return documentToModel(doc), nil
}

func (r *documentRepository) Get(ctx context.Context, id model.DocumentID) (*model.Document, error) {
	snap, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "document not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("id", id))
	}

	var doc documentDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal document", goerr.V("id", id))
	}
	return documentToModel(&doc), nil
}

func (r *documentRepository) ListUnprocessed(ctx context.Context, limit int) ([]*model.Document, error) {
	q := r.collection().
		Where("processed", "==", false).
		OrderBy("ingested_at", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var docs []*model.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate unprocessed documents")
		}

		var doc documentDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal document", goerr.V("id", snap.Ref.ID))
		}
		docs = append(docs, documentToModel(&doc))
	}

	return docs, nil
}

func (r *documentRepository) MarkProcessed(ctx context.Context, id model.DocumentID) error {
	_, err := r.collection().Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "processed", Value: true},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "document not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to mark document processed", goerr.V("id", id))
	}
	return nil
}
