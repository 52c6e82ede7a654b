package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/service/classifier"
	"github.com/secmon-lab/argus/pkg/service/metrics"
	"github.com/secmon-lab/argus/pkg/utils/errutil"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

const insightTitleChars = 80

// PipelineUseCase turns unprocessed documents into insights, one batch per tick
type PipelineUseCase struct {
	repo         interfaces.Repository
	classifier   classifier.Service
	insight      *InsightUseCase
	augment      *AugmentUseCase
	notification *NotificationUseCase
	tokens       TokenService
	recorder     metrics.Recorder
	cfg          PipelineConfig
	clock        func() time.Time
}

func NewPipelineUseCase(
	repo interfaces.Repository,
	classifierSvc classifier.Service,
	insight *InsightUseCase,
	augment *AugmentUseCase,
	notification *NotificationUseCase,
	tokens TokenService,
	recorder metrics.Recorder,
	cfg PipelineConfig,
	clock func() time.Time,
) *PipelineUseCase {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &PipelineUseCase{
		repo:         repo,
		classifier:   classifierSvc,
		insight:      insight,
		augment:      augment,
		notification: notification,
		tokens:       tokens,
		recorder:     recorder,
		cfg:          cfg,
		clock:        clock,
	}
}

// RunTick processes one batch of unprocessed documents, oldest first. A document that
// fails stays unprocessed and is retried on a later tick.
func (uc *PipelineUseCase) RunTick(ctx context.Context) (*model.TickResult, error) {
	started := time.Now()
	result := &model.TickResult{CorrelationID: model.NewCorrelationID()}
	ctx = logging.WithCorrelationID(ctx, result.CorrelationID)
	logger := logging.From(ctx)

	docs, err := uc.listBatch(ctx)
	if err != nil {
		uc.recorder.RecordTick(0, time.Since(started))
		return result, err
	}
	result.Fetched = len(docs)
	defer func() {
		uc.recorder.RecordTick(result.Fetched, time.Since(started))
	}()

	if len(docs) == 0 {
		logger.Debug("no unprocessed documents")
		return result, nil
	}

	principal, err := uc.authenticate(ctx)
	if err != nil {
		return result, err
	}

	known := uc.snapshot(ctx)
	logger.Info("processing batch", "documents", len(docs), "known_entities", len(known))

	for _, doc := range docs {
		if ctx.Err() != nil {
			logger.Warn("tick interrupted", "remaining", len(docs)-result.Processed-result.Failed)
			break
		}

		if err := uc.processDocument(ctx, principal, doc, known, result); err != nil {
			result.Failed++
			uc.recorder.RecordDocumentFailed()
			_ = errutil.Handle(ctx, err, "document left unprocessed")
			continue
		}
		result.Processed++
		uc.recorder.RecordDocumentProcessed()
	}

	logger.Info("tick finished",
		"fetched", result.Fetched,
		"processed", result.Processed,
		"failed", result.Failed,
		"augmented", result.Augmented,
		"notified", result.Notified,
		"elapsed", time.Since(started),
	)
	return result, nil
}

func (uc *PipelineUseCase) listBatch(ctx context.Context) ([]*model.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.CallTimeout)
	defer cancel()

	docs, err := uc.repo.Document().ListUnprocessed(ctx, uc.cfg.BatchSize)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list unprocessed documents", goerr.V("batch_size", uc.cfg.BatchSize))
	}
	return docs, nil
}

// authenticate obtains the system credential and verifies it back into a principal.
// Without a token service the pipeline acts as the built-in system principal.
func (uc *PipelineUseCase) authenticate(ctx context.Context) (*auth.Principal, error) {
	if uc.tokens == nil {
		return auth.System(), nil
	}

	raw, err := uc.tokens.SystemToken(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to mint system token")
	}
	p, err := uc.tokens.Verify(ctx, raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to verify system token")
	}
	return p, nil
}

// snapshot reads the registry once per tick. A failed read degrades to no known entities.
func (uc *PipelineUseCase) snapshot(ctx context.Context) []model.KnownEntity {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.CallTimeout)
	defer cancel()

	competitors, err := uc.repo.Competitor().List(ctx)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to read entity registry"), "continuing without known entities")
		return []model.KnownEntity{}
	}

	known := make([]model.KnownEntity, 0, len(competitors))
	for _, c := range competitors {
		known = append(known, c.KnownEntity())
	}
	return known
}

// processDocument records one insight for doc. A document whose insight already
// exists, because marking it processed failed on an earlier tick, is only marked.
func (uc *PipelineUseCase) processDocument(ctx context.Context, p *auth.Principal, doc *model.Document, known []model.KnownEntity, result *model.TickResult) error {
	logger := logging.From(ctx).With("document_id", doc.ID)

	recorded, err := uc.recordedInsight(ctx, doc.ID)
	if err != nil {
		return err
	}
	if recorded != nil {
		logger.Info("insight already recorded, completing document", "insight_id", recorded.ID)
		return uc.markProcessed(ctx, doc.ID, recorded.ID)
	}

	c := uc.classifier.Classify(ctx, classifier.Input{
		DocumentID:    doc.ID,
		Text:          doc.FullText(),
		KnownEntities: known,
	})

	if ShouldAugment(c) {
		augCtx, cancel := context.WithTimeout(ctx, uc.cfg.CallTimeout)
		if uc.augment.Augment(augCtx, doc, c) {
			result.Augmented++
		}
		cancel()
	}

	insight, err := uc.createInsight(ctx, p, doc, c)
	if err != nil {
		return err
	}
	logger.Info("insight recorded", "insight_id", insight.ID, "category", insight.Category)

	uc.notify(ctx, p, insight, c, result)

	return uc.markProcessed(ctx, doc.ID, insight.ID)
}

func (uc *PipelineUseCase) recordedInsight(ctx context.Context, docID model.DocumentID) (*model.Insight, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.CallTimeout)
	defer cancel()

	insights, err := uc.repo.Insight().ListBySourceDocument(ctx, docID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up insights of document", goerr.V(DocumentIDKey, docID))
	}
	if len(insights) == 0 {
		return nil, nil
	}
	return insights[0], nil
}

func (uc *PipelineUseCase) markProcessed(ctx context.Context, docID model.DocumentID, insightID model.InsightID) error {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.CallTimeout)
	defer cancel()

	if err := uc.repo.Document().MarkProcessed(ctx, docID); err != nil {
		return goerr.Wrap(err, "failed to mark document processed",
			goerr.V(DocumentIDKey, docID),
			goerr.V(InsightIDKey, insightID))
	}
	return nil
}

func (uc *PipelineUseCase) createInsight(ctx context.Context, p *auth.Principal, doc *model.Document, c model.Classification) (*model.Insight, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.CallTimeout)
	defer cancel()

	published := truncateToDate(uc.clock())
	if doc.PublishedDate != nil {
		published = *doc.PublishedDate
	}

	var impact *types.ImpactLevel
	if c.ImpactLevel != "" {
		level := c.ImpactLevel
		impact = &level
	}
	score := c.RelevanceScore

	insight, err := uc.insight.Create(ctx, p, CreateInsightInput{
		Title:            insightTitle(c.Category, doc.Title),
		Description:      insightDescription(c),
		Category:         c.Category,
		TherapeuticArea:  c.TherapeuticArea,
		CompetitorID:     c.MatchedEntityID,
		ImpactLevel:      impact,
		RelevanceScore:   &score,
		Source:           doc.Source,
		PublishedDate:    &published,
		SourceDocumentID: doc.ID,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create insight", goerr.V(DocumentIDKey, doc.ID))
	}
	return insight, nil
}

// notify broadcasts the insight. Failures are logged only; the document still completes.
func (uc *PipelineUseCase) notify(ctx context.Context, p *auth.Principal, insight *model.Insight, c model.Classification, result *model.TickResult) {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.CallTimeout)
	defer cancel()

	res, err := uc.notification.Trigger(ctx, p, TriggerInput{
		InsightID:       insight.ID,
		Title:           insight.Title,
		Description:     c.Summary,
		TherapeuticArea: insight.TherapeuticArea,
		CompetitorID:    insight.CompetitorID,
	})
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to trigger notifications", goerr.V(InsightIDKey, insight.ID)), "notification skipped")
		return
	}
	result.Notified += res.SentNotifications
	uc.recorder.RecordNotificationsSent(res.SentNotifications)
}

func insightTitle(category types.Category, docTitle string) string {
	return "[" + string(category) + "] " + prefix(docTitle, insightTitleChars)
}

func insightDescription(c model.Classification) string {
	entities := strings.Join([]string{c.Entities.Company, c.Entities.Drug, c.Entities.Phase}, ", ")
	return c.Summary + "\n\nEntities: " + entities + "."
}
