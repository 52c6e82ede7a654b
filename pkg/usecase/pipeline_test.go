package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/repository/memory"
	"github.com/secmon-lab/argus/pkg/service/classifier"
	"github.com/secmon-lab/argus/pkg/usecase"
)

func ingest(t *testing.T, uc *usecase.UseCases, externalID, title, content string, ingestedAt time.Time) *model.Document {
	t.Helper()
	doc, created, err := uc.Ingest.Ingest(context.Background(), admin, &model.Document{
		Source:     "ClinicalTrials",
		ExternalID: externalID,
		Title:      title,
		RawContent: content,
		IngestedAt: ingestedAt,
	})
	gt.NoError(t, err).Required()
	gt.Bool(t, created).True()
	return doc
}

func TestPipeline_EmptyBatch(t *testing.T) {
	mem := memory.New()
	competitors := &faultyCompetitors{CompetitorRepository: mem.Competitor()}
	repo := &faultyRepository{Memory: mem, competitor: competitors}
	tokens := &mockTokenService{}
	llm := &mockClassifier{}

	uc := usecase.New(repo, usecase.WithTokenService(tokens), usecase.WithClassifier(llm))
	result, err := uc.Pipeline.RunTick(context.Background())
	gt.NoError(t, err).Required()

	gt.Value(t, result.Fetched).Equal(0)
	gt.Bool(t, result.Idle()).True()
	gt.String(t, result.CorrelationID).NotEqual("")
	gt.Value(t, tokens.minted).Equal(0)
	gt.Value(t, competitors.listCalls).Equal(0)
	gt.Array(t, llm.calls()).Length(0)
}

func TestPipeline_OracleUnavailableUsesDefaultRecord(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := usecase.New(repo, usecase.WithClassifier(classifier.NewDisabled()), usecase.WithClock(fixedClock))

	doc := ingest(t, uc, "ext-1", "Quarterly update", "Nothing to see", time.Now())

	result, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Processed).Equal(1)
	gt.Value(t, result.Failed).Equal(0)

	insights, err := repo.Insight().ListBySourceDocument(ctx, doc.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, insights).Length(1).Required()

	got := insights[0]
	gt.Value(t, got.Category).Equal(types.CategoryGeneral)
	gt.Value(t, *got.ImpactLevel).Equal(types.ImpactLow)
	gt.Value(t, *got.RelevanceScore).Equal(3.0)
	gt.String(t, got.Title).Equal("[General] Quarterly update")
	gt.String(t, got.Description).Equal("Analysis unavailable.\n\nEntities: N/A, N/A, N/A.")
	gt.String(t, got.TherapeuticArea).Equal("General")
	gt.String(t, got.Source).Equal("ClinicalTrials")
	gt.Value(t, got.CompetitorID).Nil()
	gt.Value(t, got.PublishedDate).Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))

	stored, err := repo.Document().Get(ctx, doc.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, stored.Processed).True()
}

func TestPipeline_DocumentEventuallyProcessedOnce(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	insights := &faultyInsights{
		InsightRepository: mem.Insight(),
		failCreates:       2,
		err:               errors.New("insight store unavailable"),
	}
	repo := &faultyRepository{Memory: mem, insight: insights}
	uc := usecase.New(repo)

	doc := ingest(t, uc, "ext-1", "Title", "Body", time.Now())

	for i := 0; i < 2; i++ {
		result, err := uc.Pipeline.RunTick(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, result.Fetched).Equal(1)
		gt.Value(t, result.Failed).Equal(1)
		gt.Bool(t, result.Idle()).True()

		stored, err := mem.Document().Get(ctx, doc.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Processed).False()
	}

	result, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Processed).Equal(1)

	result, err = uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Fetched).Equal(0)

	created, err := mem.Insight().ListBySourceDocument(ctx, doc.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, created).Length(1)
}

func TestPipeline_FailedDocumentDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	repo := &faultyRepository{Memory: mem, insight: &faultyInsights{
		InsightRepository: mem.Insight(),
		failCreates:       1,
		err:               errors.New("timeout"),
	}}
	uc := usecase.New(repo)

	base := time.Now().Add(-time.Hour)
	first := ingest(t, uc, "ext-1", "First", "a", base)
	second := ingest(t, uc, "ext-2", "Second", "b", base.Add(time.Minute))

	result, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Failed).Equal(1)
	gt.Value(t, result.Processed).Equal(1)
	gt.Bool(t, result.Idle()).False()

	stored, err := mem.Document().Get(ctx, first.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, stored.Processed).False()

	stored, err = mem.Document().Get(ctx, second.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, stored.Processed).True()
}

func TestPipeline_BatchSizeAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	llm := &mockClassifier{}
	uc := usecase.New(repo, usecase.WithClassifier(llm), usecase.WithPipelineConfig(usecase.PipelineConfig{BatchSize: 3}))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		ingest(t, uc, fmt.Sprintf("ext-%d", i), fmt.Sprintf("Doc %d", i), "body", base.Add(time.Duration(i)*time.Minute))
	}

	result, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Fetched).Equal(3)

	calls := llm.calls()
	gt.Array(t, calls).Length(3).Required()
	gt.String(t, calls[0].Text).Equal("Doc 0\nbody")
	gt.String(t, calls[2].Text).Equal("Doc 2\nbody")

	result, err = uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Fetched).Equal(1)
}

func TestPipeline_EndToEndAugmentation(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	competitor, err := repo.Competitor().Create(ctx, &model.Competitor{Name: "AstraZeneca"})
	gt.NoError(t, err).Required()

	llm := &mockClassifier{classifyFn: func(ctx context.Context, input classifier.Input) model.Classification {
		c := model.DefaultClassification()
		c.Summary = "Phase 3 readout"
		c.Category = types.CategoryClinicalTrial
		c.TherapeuticArea = "Oncology"
		c.ImpactLevel = types.ImpactHigh
		c.RelevanceScore = 8.5
		c.Entities = model.Entities{Company: "AstraZeneca", Drug: "AZD9833", Phase: "Phase 3", Indication: model.NotAvailable}
		for _, e := range input.KnownEntities {
			if e.Name == "AstraZeneca" {
				c.MatchedEntityID = ptr(e.ID)
			}
		}
		return c
	}}
	uc := usecase.New(repo, usecase.WithClassifier(llm), usecase.WithClock(fixedClock))

	doc := ingest(t, uc, "NCT01234567", "AZD9833 SERENA-4 results", "Study NCT01234567 met its primary endpoint.", time.Now())

	result, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Processed).Equal(1)
	gt.Value(t, result.Augmented).Equal(1)

	calls := llm.calls()
	gt.Array(t, calls).Length(1).Required()
	gt.Array(t, calls[0].KnownEntities).Length(1)
	gt.Value(t, calls[0].DocumentID).Equal(doc.ID)

	trials, err := repo.Competitor().ListTrials(ctx, competitor.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, trials).Length(1).Required()
	gt.String(t, trials[0].TrialID).Equal("NCT01234567")
	gt.String(t, trials[0].DrugName).Equal("AZD9833")
	gt.String(t, trials[0].Phase).Equal("Phase 3")
	gt.String(t, trials[0].Indication).Equal("AZD9833 SERENA-4 results")
	gt.String(t, trials[0].Status).Equal("New Intelligence")
	gt.Value(t, trials[0].StartDate).Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	gt.Value(t, trials[0].EstimatedCompletion).Nil()
	gt.Value(t, trials[0].EnrollmentTarget).Equal(0)

	insights, err := repo.Insight().List(ctx, model.InsightFilter{CompetitorID: competitor.ID})
	gt.NoError(t, err).Required()
	gt.Array(t, insights).Length(1).Required()
	gt.Value(t, insights[0].SourceDocumentID).Equal(doc.ID)
	gt.Value(t, *insights[0].RelevanceScore).Equal(8.5)
	gt.String(t, insights[0].Title).Equal("[Clinical Trial] AZD9833 SERENA-4 results")
	gt.String(t, insights[0].Description).Equal("Phase 3 readout\n\nEntities: AstraZeneca, AZD9833, Phase 3.")
}

func TestPipeline_AugmentationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	competitor, err := repo.Competitor().Create(ctx, &model.Competitor{Name: "Pfizer"})
	gt.NoError(t, err).Required()

	llm := &mockClassifier{classifyFn: func(ctx context.Context, input classifier.Input) model.Classification {
		c := model.DefaultClassification()
		c.Category = types.CategoryClinicalTrial
		c.MatchedEntityID = ptr(competitor.ID)
		return c
	}}
	uc := usecase.New(repo, usecase.WithClassifier(llm))

	base := time.Now().Add(-time.Hour)
	ingest(t, uc, "a", "First report on NCT00000001", "", base)
	ingest(t, uc, "b", "Second report", "Follow-up for NCT00000001", base.Add(time.Minute))

	result, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Processed).Equal(2)
	gt.Value(t, result.Augmented).Equal(2)

	trials, err := repo.Competitor().ListTrials(ctx, competitor.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, trials).Length(1).Required()
	gt.String(t, trials[0].TrialID).Equal("NCT00000001")
	gt.String(t, trials[0].DrugName).Equal("Unknown Candidate")
	gt.String(t, trials[0].Phase).Equal("Unknown")
	gt.String(t, trials[0].Indication).Equal("Second report")
}

func TestPipeline_ExternalTrialIdentifier(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	competitor, err := repo.Competitor().Create(ctx, &model.Competitor{Name: "Novartis"})
	gt.NoError(t, err).Required()

	llm := &mockClassifier{classifyFn: func(ctx context.Context, input classifier.Input) model.Classification {
		c := model.DefaultClassification()
		c.Entities.Drug = "NVS-1"
		c.Entities.Phase = "Phase 1"
		c.MatchedEntityID = ptr(competitor.ID)
		return c
	}}
	uc := usecase.New(repo, usecase.WithClassifier(llm))
	doc := ingest(t, uc, "x", "Early data", "No registry number here", time.Now())

	_, err = uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()

	trials, err := repo.Competitor().ListTrials(ctx, competitor.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, trials).Length(1).Required()
	gt.String(t, trials[0].TrialID).Equal("EXT-" + string(doc.ID)[:8])
}

func TestPipeline_AugmentationFailureDoesNotBlockInsight(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	competitor, err := mem.Competitor().Create(ctx, &model.Competitor{Name: "Roche"})
	gt.NoError(t, err).Required()

	repo := &faultyRepository{Memory: mem, competitor: &faultyCompetitors{
		CompetitorRepository: mem.Competitor(),
		upsertErr:            errors.New("registry write failed"),
	}}
	llm := &mockClassifier{classifyFn: func(ctx context.Context, input classifier.Input) model.Classification {
		c := model.DefaultClassification()
		c.Category = types.CategoryClinicalTrial
		c.MatchedEntityID = ptr(competitor.ID)
		return c
	}}
	uc := usecase.New(repo, usecase.WithClassifier(llm))
	doc := ingest(t, uc, "x", "NCT11111111 update", "", time.Now())

	result, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Processed).Equal(1)
	gt.Value(t, result.Augmented).Equal(0)

	insights, err := mem.Insight().ListBySourceDocument(ctx, doc.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, insights).Length(1)

	stored, err := mem.Document().Get(ctx, doc.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, stored.Processed).True()
}

func TestPipeline_RegistryFailureDegradesToEmptySnapshot(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	_, err := mem.Competitor().Create(ctx, &model.Competitor{Name: "Merck"})
	gt.NoError(t, err).Required()

	competitors := &faultyCompetitors{CompetitorRepository: mem.Competitor(), listErr: errors.New("registry down")}
	repo := &faultyRepository{Memory: mem, competitor: competitors}
	llm := &mockClassifier{}
	uc := usecase.New(repo, usecase.WithClassifier(llm))
	ingest(t, uc, "a", "A", "", time.Now().Add(-time.Minute))
	ingest(t, uc, "b", "B", "", time.Now())

	result, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Processed).Equal(2)
	gt.Value(t, competitors.listCalls).Equal(1)

	for _, call := range llm.calls() {
		gt.Array(t, call.KnownEntities).Length(0)
	}
}

func TestPipeline_NotifiesSubscribers(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	_, err := repo.Subscription().Create(ctx, &model.Subscription{OwnerUserID: "u-1", TherapeuticAreas: []string{"Oncology"}})
	gt.NoError(t, err).Required()

	llm := &mockClassifier{classifyFn: func(ctx context.Context, input classifier.Input) model.Classification {
		c := model.DefaultClassification()
		c.Summary = "Approval granted"
		c.TherapeuticArea = "Oncology"
		return c
	}}
	uc := usecase.New(repo, usecase.WithClassifier(llm))
	ingest(t, uc, "a", "FDA approves drug", "", time.Now())

	result, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Notified).Equal(1)

	rows, err := repo.Notification().ListByUser(ctx, "u-1")
	gt.NoError(t, err).Required()
	gt.Array(t, rows).Length(1).Required()
	gt.String(t, rows[0].CorrelationID).Equal(result.CorrelationID)
	gt.String(t, rows[0].Payload.Title).Equal("[General] FDA approves drug")
	gt.String(t, rows[0].Payload.Description).Equal("Approval granted")
	gt.String(t, rows[0].Payload.Message).Equal("New Insight: [General] FDA approves drug")
}

func TestPipeline_MarkFailureDoesNotDuplicateInsight(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	_, err := mem.Subscription().Create(ctx, &model.Subscription{OwnerUserID: "u-1", TherapeuticAreas: []string{"Oncology"}})
	gt.NoError(t, err).Required()

	docs := &faultyDocuments{DocumentRepository: mem.Document(), failMarks: 1, err: errors.New("write conflict")}
	repo := &faultyRepository{Memory: mem, document: docs}
	llm := &mockClassifier{classifyFn: func(ctx context.Context, input classifier.Input) model.Classification {
		c := model.DefaultClassification()
		c.TherapeuticArea = "Oncology"
		return c
	}}
	uc := usecase.New(repo, usecase.WithClassifier(llm))
	doc := ingest(t, uc, "ext-1", "Label expansion", "", time.Now())

	first, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, first.Failed).Equal(1)
	gt.Value(t, first.Notified).Equal(1)

	second, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, second.Processed).Equal(1)
	gt.Value(t, second.Notified).Equal(0)

	third, err := uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, third.Fetched).Equal(0)

	insights, err := mem.Insight().ListBySourceDocument(ctx, doc.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, insights).Length(1)

	rows, err := mem.Notification().ListByUser(ctx, "u-1")
	gt.NoError(t, err).Required()
	gt.Array(t, rows).Length(1)

	gt.Array(t, llm.calls()).Length(1)

	stored, err := mem.Document().Get(ctx, doc.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, stored.Processed).True()
}

func TestPipeline_SystemCredential(t *testing.T) {
	t.Run("minted and verified once per tick", func(t *testing.T) {
		repo := memory.New()
		var verified []string
		tokens := &mockTokenService{verifyFn: func(ctx context.Context, raw string) (*auth.Principal, error) {
			verified = append(verified, raw)
			return auth.System(), nil
		}}
		uc := usecase.New(repo, usecase.WithTokenService(tokens))
		ingest(t, uc, "a", "A", "", time.Now().Add(-time.Minute))
		ingest(t, uc, "b", "B", "", time.Now())

		result, err := uc.Pipeline.RunTick(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, result.Processed).Equal(2)
		gt.Value(t, tokens.minted).Equal(1)
		gt.Value(t, verified).Equal([]string{"system-token"})
	})

	t.Run("rejected credential leaves batch unprocessed", func(t *testing.T) {
		ctx := context.Background()
		repo := memory.New()
		tokens := &mockTokenService{verifyFn: func(ctx context.Context, raw string) (*auth.Principal, error) {
			return nil, auth.ErrUnauthenticated
		}}
		uc := usecase.New(repo, usecase.WithTokenService(tokens))
		doc := ingest(t, uc, "a", "A", "", time.Now())

		_, err := uc.Pipeline.RunTick(ctx)
		gt.Error(t, err).Is(auth.ErrUnauthenticated)

		stored, err := repo.Document().Get(ctx, doc.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Processed).False()
	})

	t.Run("principal without insight write role fails documents", func(t *testing.T) {
		repo := memory.New()
		tokens := &mockTokenService{verifyFn: func(ctx context.Context, raw string) (*auth.Principal, error) {
			return executive, nil
		}}
		uc := usecase.New(repo, usecase.WithTokenService(tokens))
		ingest(t, uc, "a", "A", "", time.Now())

		result, err := uc.Pipeline.RunTick(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, result.Failed).Equal(1)
	})
}

func TestPipeline_PublishedDateFromDocument(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := usecase.New(repo)

	published := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	doc, _, err := uc.Ingest.Ingest(ctx, admin, &model.Document{
		Source:        "EMA",
		ExternalID:    "ema-1",
		Title:         "Opinion adopted",
		PublishedDate: &published,
	})
	gt.NoError(t, err).Required()

	_, err = uc.Pipeline.RunTick(ctx)
	gt.NoError(t, err).Required()

	insights, err := repo.Insight().ListBySourceDocument(ctx, doc.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, insights).Length(1).Required()
	gt.Value(t, insights[0].PublishedDate).Equal(published)
}
