package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
)

func runCompetitorRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create and Get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Competitor().Create(ctx, &model.Competitor{
			Name:             "Acme Pharma",
			Headquarters:     "Basel",
			TherapeuticAreas: []string{"Oncology"},
			ActiveDrugs:      []string{"Zentrix"},
		})
		gt.NoError(t, err).Required()
		gt.String(t, string(created.ID)).NotEqual("")
		gt.Bool(t, created.CreatedAt.IsZero()).False()

		got, err := repo.Competitor().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Name).Equal("Acme Pharma")
		gt.Array(t, got.TherapeuticAreas).Has("Oncology")
	})

	t.Run("Create with existing ID returns ErrAlreadyExists", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id := model.CompetitorID(uniq("comp"))
		_, err := repo.Competitor().Create(ctx, &model.Competitor{ID: id, Name: "First"})
		gt.NoError(t, err).Required()

		_, err = repo.Competitor().Create(ctx, &model.Competitor{ID: id, Name: "Second"})
		gt.Error(t, err).Is(interfaces.ErrAlreadyExists)
	})

	t.Run("List returns all competitors", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a, err := repo.Competitor().Create(ctx, &model.Competitor{Name: "Alpha"})
		gt.NoError(t, err).Required()
		b, err := repo.Competitor().Create(ctx, &model.Competitor{Name: "Beta"})
		gt.NoError(t, err).Required()

		list, err := repo.Competitor().List(ctx)
		gt.NoError(t, err).Required()

		ids := make([]model.CompetitorID, 0, len(list))
		for _, c := range list {
			ids = append(ids, c.ID)
		}
		gt.Array(t, ids).Has(a.ID)
		gt.Array(t, ids).Has(b.ID)
	})

	t.Run("UpsertTrial keeps one record per trial ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		comp, err := repo.Competitor().Create(ctx, &model.Competitor{Name: "Trialist"})
		gt.NoError(t, err).Required()

		first, err := repo.Competitor().UpsertTrial(ctx, comp.ID, &model.ClinicalTrial{
			TrialID:   "NCT12345678",
			DrugName:  "Zentrix",
			Phase:     "Phase 2",
			Status:    "New Intelligence",
			StartDate: time.Now().UTC().Truncate(24 * time.Hour),
		})
		gt.NoError(t, err).Required()
		gt.Value(t, first.CompetitorID).Equal(comp.ID)

		second, err := repo.Competitor().UpsertTrial(ctx, comp.ID, &model.ClinicalTrial{
			TrialID:   "NCT12345678",
			DrugName:  "Zentrix",
			Phase:     "Phase 3",
			Status:    "New Intelligence",
			StartDate: time.Now().UTC().Truncate(24 * time.Hour),
		})
		gt.NoError(t, err).Required()
		gt.Value(t, second.ID).Equal(first.ID)
		gt.Bool(t, second.CreatedAt.Equal(first.CreatedAt)).True()

		trials, err := repo.Competitor().ListTrials(ctx, comp.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, trials).Length(1).Required()
		gt.Value(t, trials[0].Phase).Equal("Phase 3")
	})

	t.Run("UpsertTrial on unknown competitor returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Competitor().UpsertTrial(context.Background(), model.CompetitorID(uniq("ghost")), &model.ClinicalTrial{
			TrialID: "NCT00000001",
		})
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func TestMemoryCompetitorRepository(t *testing.T) {
	runCompetitorRepositoryTest(t, newMemoryRepository)
}

func TestFirestoreCompetitorRepository(t *testing.T) {
	runCompetitorRepositoryTest(t, newFirestoreRepository)
}
