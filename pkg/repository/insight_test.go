package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/types"
)

func runInsightRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	newInsight := func(title, area string, comp *model.CompetitorID) *model.Insight {
		impact := types.ImpactHigh
		score := 9.0
		return &model.Insight{
			Title:           title,
			Description:     "desc",
			Category:        types.CategoryClinicalTrial,
			TherapeuticArea: area,
			CompetitorID:    comp,
			ImpactLevel:     &impact,
			RelevanceScore:  &score,
			Source:          "rss",
			PublishedDate:   time.Now().UTC(),
		}
	}

	t.Run("Create and Get keep nullable fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		comp := model.CompetitorID("comp-1")
		created, err := repo.Insight().Create(ctx, newInsight("t", "Oncology", &comp))
		gt.NoError(t, err).Required()

		got, err := repo.Insight().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.CompetitorID).NotNil().Required()
		gt.Value(t, *got.CompetitorID).Equal(comp)
		gt.Value(t, got.ImpactLevel).NotNil().Required()
		gt.Value(t, *got.ImpactLevel).Equal(types.ImpactHigh)
		gt.Value(t, got.RelevanceScore).NotNil().Required()
		gt.Number(t, *got.RelevanceScore).Equal(9.0)
	})

	t.Run("List filters by area and competitor", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		area := uniq("area")
		comp := model.CompetitorID(uniq("comp"))
		a, err := repo.Insight().Create(ctx, newInsight("a", area, nil))
		gt.NoError(t, err).Required()
		time.Sleep(2 * time.Millisecond)
		b, err := repo.Insight().Create(ctx, newInsight("b", area, &comp))
		gt.NoError(t, err).Required()
		_, err = repo.Insight().Create(ctx, newInsight("c", "Other", nil))
		gt.NoError(t, err).Required()

		byArea, err := repo.Insight().List(ctx, model.InsightFilter{TherapeuticArea: area})
		gt.NoError(t, err).Required()
		gt.Array(t, byArea).Length(2).Required()
		gt.Value(t, byArea[0].ID).Equal(b.ID)
		gt.Value(t, byArea[1].ID).Equal(a.ID)

		byComp, err := repo.Insight().List(ctx, model.InsightFilter{CompetitorID: comp})
		gt.NoError(t, err).Required()
		gt.Array(t, byComp).Length(1).Required()
		gt.Value(t, byComp[0].ID).Equal(b.ID)
	})

	t.Run("ListBySourceDocument", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		docID := model.DocumentID(uniq("doc"))
		in := newInsight("from doc", "Oncology", nil)
		in.SourceDocumentID = docID
		created, err := repo.Insight().Create(ctx, in)
		gt.NoError(t, err).Required()

		list, err := repo.Insight().ListBySourceDocument(ctx, docID)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(1).Required()
		gt.Value(t, list[0].ID).Equal(created.ID)
	})

	t.Run("Update keeps CreatedAt and clears nullable fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		comp := model.CompetitorID("comp-2")
		created, err := repo.Insight().Create(ctx, newInsight("before", "Oncology", &comp))
		gt.NoError(t, err).Required()

		created.Title = "after"
		created.CompetitorID = nil
		updated, err := repo.Insight().Update(ctx, created)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Title).Equal("after")
		gt.Bool(t, updated.CreatedAt.Equal(created.CreatedAt)).True()

		got, err := repo.Insight().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.CompetitorID).Nil()
	})

	t.Run("Update and Delete return ErrNotFound for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		missing := newInsight("x", "y", nil)
		missing.ID = model.InsightID(uniq("missing"))
		_, err := repo.Insight().Update(ctx, missing)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		gt.Error(t, repo.Insight().Delete(ctx, missing.ID)).Is(interfaces.ErrNotFound)
	})

	t.Run("Delete removes insight", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Insight().Create(ctx, newInsight("gone", "Oncology", nil))
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Insight().Delete(ctx, created.ID)).Required()

		_, err = repo.Insight().Get(ctx, created.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func TestMemoryInsightRepository(t *testing.T) {
	runInsightRepositoryTest(t, newMemoryRepository)
}

func TestFirestoreInsightRepository(t *testing.T) {
	runInsightRepositoryTest(t, newFirestoreRepository)
}
