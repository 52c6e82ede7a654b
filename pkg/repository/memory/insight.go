package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
)

type insightRepository struct {
	mu       sync.RWMutex
	insights map[model.InsightID]*model.Insight
}

func newInsightRepository() *insightRepository {
	return &insightRepository{
		insights: make(map[model.InsightID]*model.Insight),
	}
}

// copyInsight creates a deep copy so callers cannot mutate stored pointers
func copyInsight(i *model.Insight) *model.Insight {
	copied := *i
	if i.CompetitorID != nil {
		v := *i.CompetitorID
		copied.CompetitorID = &v
	}
	if i.ImpactLevel != nil {
		v := *i.ImpactLevel
		copied.ImpactLevel = &v
	}
	if i.RelevanceScore != nil {
		v := *i.RelevanceScore
		copied.RelevanceScore = &v
	}
	return &copied
}

func sortInsightsNewestFirst(list []*model.Insight) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func (r *insightRepository) Create(ctx context.Context, insight *model.Insight) (*model.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyInsight(insight)
	if created.ID == "" {
		created.ID = model.NewInsightID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.insights[created.ID] = created
	return copyInsight(created), nil
}

func (r *insightRepository) Get(ctx context.Context, id model.InsightID) (*model.Insight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	insight, ok := r.insights[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "insight not found", goerr.V("id", id))
	}
	return copyInsight(insight), nil
}

func (r *insightRepository) List(ctx context.Context, filter model.InsightFilter) ([]*model.Insight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Insight
	for _, i := range r.insights {
		if filter.TherapeuticArea != "" && i.TherapeuticArea != filter.TherapeuticArea {
			continue
		}
		if filter.CompetitorID != "" && (i.CompetitorID == nil || *i.CompetitorID != filter.CompetitorID) {
			continue
		}
		result = append(result, copyInsight(i))
	}

	sortInsightsNewestFirst(result)
	return result, nil
}

func (r *insightRepository) ListBySourceDocument(ctx context.Context, docID model.DocumentID) ([]*model.Insight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Insight
	for _, i := range r.insights {
		if i.SourceDocumentID == docID {
			result = append(result, copyInsight(i))
		}
	}

	sortInsightsNewestFirst(result)
	return result, nil
}

func (r *insightRepository) Update(ctx context.Context, insight *model.Insight) (*model.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.insights[insight.ID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "insight not found", goerr.V("id", insight.ID))
	}

	updated := copyInsight(insight)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.insights[updated.ID] = updated
	return copyInsight(updated), nil
}

func (r *insightRepository) Delete(ctx context.Context, id model.InsightID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.insights[id]; !ok {
		return goerr.Wrap(ErrNotFound, "insight not found", goerr.V("id", id))
	}
	delete(r.insights, id)
	return nil
}
