package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type insightDoc struct {
	ID               string    `firestore:"id"`
	Title            string    `firestore:"title"`
	Description      string    `firestore:"description"`
	Category         string    `firestore:"category"`
	TherapeuticArea  string    `firestore:"therapeutic_area"`
	CompetitorID     *string   `firestore:"competitor_id"`
	ImpactLevel      *string   `firestore:"impact_level"`
	RelevanceScore   *float64  `firestore:"relevance_score"`
	Source           string    `firestore:"source"`
	PublishedDate    time.Time `firestore:"published_date"`
	SourceDocumentID string    `firestore:"source_document_id"`
	CreatedAt        time.Time `firestore:"created_at"`
	UpdatedAt        time.Time `firestore:"updated_at"`
}

type insightRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newInsightRepository(client *firestore.Client) *insightRepository {
	return &insightRepository{client: client}
}

func (r *insightRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "insights"))
}

func insightToDoc(i *model.Insight) *insightDoc {
	doc := &insightDoc{
		ID:               string(i.ID),
		Title:            i.Title,
		Description:      i.Description,
		Category:         string(i.Category),
		TherapeuticArea:  i.TherapeuticArea,
		RelevanceScore:   i.RelevanceScore,
		Source:           i.Source,
		PublishedDate:    i.PublishedDate,
		SourceDocumentID: string(i.SourceDocumentID),
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
	if i.CompetitorID != nil {
		v := string(*i.CompetitorID)
		doc.CompetitorID = &v
	}
	if i.ImpactLevel != nil {
		v := string(*i.ImpactLevel)
		doc.ImpactLevel = &v
	}
	return doc
}

func insightToModel(doc *insightDoc) *model.Insight {
	i := &model.Insight{
		ID:               model.InsightID(doc.ID),
		Title:            doc.Title,
		Description:      doc.Description,
		Category:         types.Category(doc.Category),
		TherapeuticArea:  doc.TherapeuticArea,
		RelevanceScore:   doc.RelevanceScore,
		Source:           doc.Source,
		PublishedDate:    doc.PublishedDate,
		SourceDocumentID: model.DocumentID(doc.SourceDocumentID),
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	if doc.CompetitorID != nil {
		v := model.CompetitorID(*doc.CompetitorID)
		i.CompetitorID = &v
	}
	if doc.ImpactLevel != nil {
		v := types.ImpactLevel(*doc.ImpactLevel)
		i.ImpactLevel = &v
	}
	return i
}

func (r *insightRepository) Create(ctx context.Context, insight *model.Insight) (*model.Insight, error) {
	now := time.Now().UTC()
	created := *insight
	if created.ID == "" {
		created.ID = model.NewInsightID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	doc := insightToDoc(&created)

	if _, err := r.collection().Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to create insight", goerr.V("id", doc.ID))
	}
	return insightToModel(doc), nil
}

func (r *insightRepository) Get(ctx context.Context, id model.InsightID) (*model.Insight, error) {
	snap, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "insight not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get insight", goerr.V("id", id))
	}

	var doc insightDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal insight", goerr.V("id", id))
	}
	return insightToModel(&doc), nil
}

func (r *insightRepository) query(ctx context.Context, q firestore.Query) ([]*model.Insight, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var insights []*model.Insight
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate insights")
		}

		var doc insightDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal insight", goerr.V("id", snap.Ref.ID))
		}
		insights = append(insights, insightToModel(&doc))
	}

	// Sorted here so equality filters need no composite index
	sort.Slice(insights, func(i, j int) bool {
		return insights[i].CreatedAt.After(insights[j].CreatedAt)
	})
	return insights, nil
}

func (r *insightRepository) List(ctx context.Context, filter model.InsightFilter) ([]*model.Insight, error) {
	q := r.collection().Query
	if filter.TherapeuticArea != "" {
		q = q.Where("therapeutic_area", "==", filter.TherapeuticArea)
	}
	if filter.CompetitorID != "" {
		q = q.Where("competitor_id", "==", string(filter.CompetitorID))
	}
	return r.query(ctx, q)
}

func (r *insightRepository) ListBySourceDocument(ctx context.Context, docID model.DocumentID) ([]*model.Insight, error) {
	return r.query(ctx, r.collection().Where("source_document_id", "==", string(docID)))
}

func (r *insightRepository) Update(ctx context.Context, insight *model.Insight) (*model.Insight, error) {
	ref := r.collection().Doc(string(insight.ID))

	var result *insightDoc
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "insight not found", goerr.V("id", insight.ID))
			}
			return goerr.Wrap(err, "failed to get insight", goerr.V("id", insight.ID))
		}

		var existing insightDoc
		if err := snap.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to unmarshal insight", goerr.V("id", insight.ID))
		}

		updated := *insight
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = time.Now().UTC()
		result = insightToDoc(&updated)
		return tx.Set(ref, result)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update insight", goerr.V("id", insight.ID))
	}

	return insightToModel(result), nil
}

func (r *insightRepository) Delete(ctx context.Context, id model.InsightID) error {
	ref := r.collection().Doc(string(id))

	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "insight not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get insight", goerr.V("id", id))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete insight", goerr.V("id", id))
	}
	return nil
}
