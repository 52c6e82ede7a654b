package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type competitorDoc struct {
	ID               string    `firestore:"id"`
	Name             string    `firestore:"name"`
	Headquarters     string    `firestore:"headquarters"`
	TherapeuticAreas []string  `firestore:"therapeutic_areas"`
	ActiveDrugs      []string  `firestore:"active_drugs"`
	PipelineDrugs    []string  `firestore:"pipeline_drugs"`
	CreatedAt        time.Time `firestore:"created_at"`
}

type trialDoc struct {
	ID                  string     `firestore:"id"`
	CompetitorID        string     `firestore:"competitor_id"`
	TrialID             string     `firestore:"trial_id"`
	DrugName            string     `firestore:"drug_name"`
	Phase               string     `firestore:"phase"`
	Indication          string     `firestore:"indication"`
	Status              string     `firestore:"status"`
	StartDate           time.Time  `firestore:"start_date"`
	EstimatedCompletion *time.Time `firestore:"estimated_completion"`
	EnrollmentTarget    int        `firestore:"enrollment_target"`
	CreatedAt           time.Time  `firestore:"created_at"`
	UpdatedAt           time.Time  `firestore:"updated_at"`
}

type competitorRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newCompetitorRepository(client *firestore.Client) *competitorRepository {
	return &competitorRepository{client: client}
}

func (r *competitorRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "competitors"))
}

// trials are stored under competitors/{id}/clinical_trials/{trialID}
func (r *competitorRepository) trials(competitorID model.CompetitorID) *firestore.CollectionRef {
	return r.collection().Doc(string(competitorID)).Collection("clinical_trials")
}

func competitorToDoc(c *model.Competitor) *competitorDoc {
	return &competitorDoc{
		ID:               string(c.ID),
		Name:             c.Name,
		Headquarters:     c.Headquarters,
		TherapeuticAreas: c.TherapeuticAreas,
		ActiveDrugs:      c.ActiveDrugs,
		PipelineDrugs:    c.PipelineDrugs,
		CreatedAt:        c.CreatedAt,
	}
}

func competitorToModel(doc *competitorDoc) *model.Competitor {
	return &model.Competitor{
		ID:               model.CompetitorID(doc.ID),
		Name:             doc.Name,
		Headquarters:     doc.Headquarters,
		TherapeuticAreas: doc.TherapeuticAreas,
		ActiveDrugs:      doc.ActiveDrugs,
		PipelineDrugs:    doc.PipelineDrugs,
		CreatedAt:        doc.CreatedAt,
	}
}

func trialToDoc(t *model.ClinicalTrial) *trialDoc {
	return &trialDoc{
		ID:                  t.ID,
		CompetitorID:        string(t.CompetitorID),
		TrialID:             t.TrialID,
		DrugName:            t.DrugName,
		Phase:               t.Phase,
		Indication:          t.Indication,
		Status:              t.Status,
		StartDate:           t.StartDate,
		EstimatedCompletion: t.EstimatedCompletion,
		EnrollmentTarget:    t.EnrollmentTarget,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func trialToModel(doc *trialDoc) *model.ClinicalTrial {
	return &model.ClinicalTrial{
		ID:                  doc.ID,
		CompetitorID:        model.CompetitorID(doc.CompetitorID),
		TrialID:             doc.TrialID,
		DrugName:            doc.DrugName,
		Phase:               doc.Phase,
		Indication:          doc.Indication,
		Status:              doc.Status,
		StartDate:           doc.StartDate,
		EstimatedCompletion: doc.EstimatedCompletion,
		EnrollmentTarget:    doc.EnrollmentTarget,
		CreatedAt:           doc.CreatedAt,
		UpdatedAt:           doc.UpdatedAt,
	}
}

func (r *competitorRepository) Create(ctx context.Context, c *model.Competitor) (*model.Competitor, error) {
	created := *c
	if created.ID == "" {
		created.ID = model.NewCompetitorID()
	}
	created.CreatedAt = time.Now().UTC()
	doc := competitorToDoc(&created)

	if _, err := r.collection().Doc(doc.ID).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(ErrAlreadyExists, "competitor already exists", goerr.V("id", doc.ID))
		}
		return nil, goerr.Wrap(err, "failed to create competitor", goerr.V("id", doc.ID))
	}

	return competitorToModel(doc), nil
}

func (r *competitorRepository) Get(ctx context.Context, id model.CompetitorID) (*model.Competitor, error) {
	snap, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "competitor not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get competitor", goerr.V("id", id))
	}

	var doc competitorDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal competitor", goerr.V("id", id))
	}
	return competitorToModel(&doc), nil
}

func (r *competitorRepository) List(ctx context.Context) ([]*model.Competitor, error) {
	iter := r.collection().OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var competitors []*model.Competitor
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate competitors")
		}

		var doc competitorDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal competitor", goerr.V("id", snap.Ref.ID))
		}
		competitors = append(competitors, competitorToModel(&doc))
	}

	return competitors, nil
}

func (r *competitorRepository) UpsertTrial(ctx context.Context, competitorID model.CompetitorID, trial *model.ClinicalTrial) (*model.ClinicalTrial, error) {
	compRef := r.collection().Doc(string(competitorID))
	trialRef := r.trials(competitorID).Doc(trial.TrialID)

	var result *trialDoc
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(compRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "competitor not found", goerr.V("id", competitorID))
			}
			return goerr.Wrap(err, "failed to get competitor", goerr.V("id", competitorID))
		}

		now := time.Now().UTC()
		upserted := *trial
		upserted.CompetitorID = competitorID
		upserted.UpdatedAt = now

		snap, err := tx.Get(trialRef)
		switch {
		case err == nil:
			var existing trialDoc
			if err := snap.DataTo(&existing); err != nil {
				return goerr.Wrap(err, "failed to unmarshal trial", goerr.V("trial_id", trial.TrialID))
			}
			upserted.ID = existing.ID
			upserted.CreatedAt = existing.CreatedAt
		case status.Code(err) == codes.NotFound:
			upserted.ID = model.NewClinicalTrialID()
			upserted.CreatedAt = now
		default:
			return goerr.Wrap(err, "failed to get trial", goerr.V("trial_id", trial.TrialID))
		}

		result = trialToDoc(&upserted)
		return tx.Set(trialRef, result)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upsert trial",
			goerr.V("competitor_id", competitorID),
			goerr.V("trial_id", trial.TrialID))
	}

	return trialToModel(result), nil
}

func (r *competitorRepository) ListTrials(ctx context.Context, competitorID model.CompetitorID) ([]*model.ClinicalTrial, error) {
	if _, err := r.Get(ctx, competitorID); err != nil {
		return nil, err
	}

	iter := r.trials(competitorID).Documents(ctx)
	defer iter.Stop()

	var trials []*model.ClinicalTrial
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate trials", goerr.V("competitor_id", competitorID))
		}

		var doc trialDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal trial", goerr.V("id", snap.Ref.ID))
		}
		trials = append(trials, trialToModel(&doc))
	}

	sort.Slice(trials, func(i, j int) bool { return trials[i].TrialID < trials[j].TrialID })
	return trials, nil
}
