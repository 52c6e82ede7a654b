package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
)

type competitorRequest struct {
	Name             string   `json:"name"`
	Headquarters     string   `json:"headquarters"`
	TherapeuticAreas []string `json:"therapeuticAreas"`
	ActiveDrugs      []string `json:"activeDrugs"`
	PipelineDrugs    []string `json:"pipelineDrugs"`
}

type competitorResponse struct {
	ID               model.CompetitorID `json:"id"`
	Name             string             `json:"name"`
	Headquarters     string             `json:"headquarters"`
	TherapeuticAreas []string           `json:"therapeuticAreas"`
	ActiveDrugs      []string           `json:"activeDrugs"`
	PipelineDrugs    []string           `json:"pipelineDrugs"`
	CreatedAt        time.Time          `json:"createdAt"`
}

type trialRequest struct {
	TrialID             string  `json:"trialId"`
	DrugName            string  `json:"drugName"`
	Phase               string  `json:"phase"`
	Indication          string  `json:"indication"`
	Status              string  `json:"status"`
	StartDate           *string `json:"startDate"`
	EstimatedCompletion *string `json:"estimatedCompletion"`
	EnrollmentTarget    int     `json:"enrollmentTarget"`
}

type trialResponse struct {
	ID                  string             `json:"id"`
	CompetitorID        model.CompetitorID `json:"competitorId"`
	TrialID             string             `json:"trialId"`
	DrugName            string             `json:"drugName"`
	Phase               string             `json:"phase"`
	Indication          string             `json:"indication"`
	Status              string             `json:"status"`
	StartDate           *string            `json:"startDate"`
	EstimatedCompletion *string            `json:"estimatedCompletion"`
	EnrollmentTarget    int                `json:"enrollmentTarget"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toCompetitorResponse(c *model.Competitor) *competitorResponse {
	return &competitorResponse{
		ID:               c.ID,
		Name:             c.Name,
		Headquarters:     c.Headquarters,
		TherapeuticAreas: nonNil(c.TherapeuticAreas),
		ActiveDrugs:      nonNil(c.ActiveDrugs),
		PipelineDrugs:    nonNil(c.PipelineDrugs),
		CreatedAt:        c.CreatedAt,
	}
}

func toTrialResponse(t *model.ClinicalTrial) *trialResponse {
	var start *time.Time
	if !t.StartDate.IsZero() {
		start = &t.StartDate
	}
	return &trialResponse{
		ID:                  t.ID,
		CompetitorID:        t.CompetitorID,
		TrialID:             t.TrialID,
		DrugName:            t.DrugName,
		Phase:               t.Phase,
		Indication:          t.Indication,
		Status:              t.Status,
		StartDate:           formatOptionalDate(start),
		EstimatedCompletion: formatOptionalDate(t.EstimatedCompletion),
		EnrollmentTarget:    t.EnrollmentTarget,
		UpdatedAt:           t.UpdatedAt,
	}
}

func (s *Server) createCompetitor(w http.ResponseWriter, r *http.Request) {
	var req competitorRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(r, w, err)
		return
	}

	created, err := s.uc.Competitor.Create(r.Context(), auth.PrincipalFrom(r.Context()), &model.Competitor{
		Name:             req.Name,
		Headquarters:     req.Headquarters,
		TherapeuticAreas: req.TherapeuticAreas,
		ActiveDrugs:      req.ActiveDrugs,
		PipelineDrugs:    req.PipelineDrugs,
	})
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, toCompetitorResponse(created))
}

func (s *Server) getCompetitor(w http.ResponseWriter, r *http.Request) {
	id := model.CompetitorID(chi.URLParam(r, "id"))
	c, err := s.uc.Competitor.Get(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toCompetitorResponse(c))
}

func (s *Server) listCompetitors(w http.ResponseWriter, r *http.Request) {
	competitors, err := s.uc.Competitor.List(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		handleError(r, w, err)
		return
	}

	resp := make([]*competitorResponse, len(competitors))
	for i, c := range competitors {
		resp[i] = toCompetitorResponse(c)
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) addTrial(w http.ResponseWriter, r *http.Request) {
	var req trialRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(r, w, err)
		return
	}
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		handleError(r, w, err)
		return
	}
	completion, err := parseOptionalDate(req.EstimatedCompletion)
	if err != nil {
		handleError(r, w, err)
		return
	}

	trial := &model.ClinicalTrial{
		TrialID:             req.TrialID,
		DrugName:            req.DrugName,
		Phase:               req.Phase,
		Indication:          req.Indication,
		Status:              req.Status,
		EstimatedCompletion: completion,
		EnrollmentTarget:    req.EnrollmentTarget,
	}
	if start != nil {
		trial.StartDate = *start
	}

	id := model.CompetitorID(chi.URLParam(r, "id"))
	upserted, err := s.uc.Competitor.AddTrial(r.Context(), auth.PrincipalFrom(r.Context()), id, trial)
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toTrialResponse(upserted))
}

func (s *Server) listTrials(w http.ResponseWriter, r *http.Request) {
	id := model.CompetitorID(chi.URLParam(r, "id"))
	trials, err := s.uc.Competitor.ListTrials(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		handleError(r, w, err)
		return
	}

	resp := make([]*trialResponse, len(trials))
	for i, t := range trials {
		resp[i] = toTrialResponse(t)
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}
