package usecase

import (
	"context"
	"regexp"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/service/metrics"
	"github.com/secmon-lab/argus/pkg/utils/errutil"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

const (
	unknownDrug       = "Unknown Candidate"
	unknownPhase      = "Unknown"
	newTrialStatus    = "New Intelligence"
	externalTrialHead = "EXT-"
)

var nctPattern = regexp.MustCompile(`NCT\d{8}`)

// AugmentUseCase attaches trial sub-records to matched registry entries
type AugmentUseCase struct {
	repo     interfaces.Repository
	recorder metrics.Recorder
	clock    func() time.Time
}

func NewAugmentUseCase(repo interfaces.Repository, recorder metrics.Recorder, clock func() time.Time) *AugmentUseCase {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &AugmentUseCase{
		repo:     repo,
		recorder: recorder,
		clock:    clock,
	}
}

// ShouldAugment reports whether a classification names a registry entry and looks like a trial
func ShouldAugment(c model.Classification) bool {
	return c.MatchedEntityID != nil && c.IsTrialLike()
}

// Augment upserts the trial described by doc into the matched competitor. Failures are
// logged and reported as false; they never propagate.
func (uc *AugmentUseCase) Augment(ctx context.Context, doc *model.Document, c model.Classification) bool {
	if !ShouldAugment(c) {
		return false
	}

	trial := uc.buildTrial(doc, c)
	upserted, err := uc.repo.Competitor().UpsertTrial(ctx, *c.MatchedEntityID, trial)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to augment competitor",
			goerr.V(CompetitorIDKey, *c.MatchedEntityID),
			goerr.V(DocumentIDKey, doc.ID),
			goerr.V("trial_id", trial.TrialID),
		), "augmentation skipped")
		uc.recorder.RecordAugmentation(false)
		return false
	}

	logging.From(ctx).Info("competitor augmented",
		"competitor_id", upserted.CompetitorID,
		"trial_id", upserted.TrialID,
		"document_id", doc.ID,
	)
	uc.recorder.RecordAugmentation(true)
	return true
}

func (uc *AugmentUseCase) buildTrial(doc *model.Document, c model.Classification) *model.ClinicalTrial {
	return &model.ClinicalTrial{
		CompetitorID:     *c.MatchedEntityID,
		TrialID:          trialIdentifier(doc),
		DrugName:         orDefault(c.Entities.Drug, unknownDrug),
		Phase:            orDefault(c.Entities.Phase, unknownPhase),
		Indication:       orDefault(c.Entities.Indication, doc.Title),
		Status:           newTrialStatus,
		StartDate:        truncateToDate(uc.clock()),
		EnrollmentTarget: 0,
	}
}

// trialIdentifier returns the first NCT number in the document, or a stable
// identifier derived from the document ID
func trialIdentifier(doc *model.Document) string {
	if id := nctPattern.FindString(doc.FullText()); id != "" {
		return id
	}
	return externalTrialHead + prefix(string(doc.ID), 8)
}

func orDefault(v, fallback string) string {
	if v == "" || v == model.NotAvailable {
		return fallback
	}
	return v
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
