package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/usecase"
)

type insightRequest struct {
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Category         string              `json:"category"`
	TherapeuticArea  string              `json:"therapeuticArea"`
	CompetitorID     *model.CompetitorID `json:"competitorId"`
	ImpactLevel      *types.ImpactLevel  `json:"impactLevel"`
	RelevanceScore   *float64            `json:"relevanceScore"`
	Source           string              `json:"source"`
	PublishedDate    *string             `json:"publishedDate"`
	SourceDocumentID model.DocumentID    `json:"sourceDocumentId"`
}

type insightResponse struct {
	ID               model.InsightID     `json:"id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Category         types.Category      `json:"category,omitempty"`
	TherapeuticArea  string              `json:"therapeuticArea"`
	CompetitorID     *model.CompetitorID `json:"competitorId"`
	ImpactLevel      *types.ImpactLevel  `json:"impactLevel"`
	RelevanceScore   *float64            `json:"relevanceScore"`
	Source           string              `json:"source"`
	PublishedDate    string              `json:"publishedDate"`
	SourceDocumentID model.DocumentID    `json:"sourceDocumentId,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

func toInsightResponse(i *model.Insight) *insightResponse {
	return &insightResponse{
		ID:               i.ID,
		Title:            i.Title,
		Description:      i.Description,
		Category:         i.Category,
		TherapeuticArea:  i.TherapeuticArea,
		CompetitorID:     i.CompetitorID,
		ImpactLevel:      i.ImpactLevel,
		RelevanceScore:   i.RelevanceScore,
		Source:           i.Source,
		PublishedDate:    i.PublishedDate.Format(dateLayout),
		SourceDocumentID: i.SourceDocumentID,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}

func parseCategory(s string) (types.Category, error) {
	if s == "" {
		return "", nil
	}
	c, err := types.ParseCategory(s)
	if err != nil {
		return "", goerr.Wrap(usecase.ErrInvalidInput, err.Error())
	}
	return c, nil
}

func (s *Server) createInsight(w http.ResponseWriter, r *http.Request) {
	var req insightRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(r, w, err)
		return
	}
	category, err := parseCategory(req.Category)
	if err != nil {
		handleError(r, w, err)
		return
	}
	published, err := parseOptionalDate(req.PublishedDate)
	if err != nil {
		handleError(r, w, err)
		return
	}

	created, err := s.uc.Insight.Create(r.Context(), auth.PrincipalFrom(r.Context()), usecase.CreateInsightInput{
		Title:            req.Title,
		Description:      req.Description,
		Category:         category,
		TherapeuticArea:  req.TherapeuticArea,
		CompetitorID:     req.CompetitorID,
		ImpactLevel:      req.ImpactLevel,
		RelevanceScore:   req.RelevanceScore,
		Source:           req.Source,
		PublishedDate:    published,
		SourceDocumentID: req.SourceDocumentID,
	})
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, toInsightResponse(created))
}

func (s *Server) getInsight(w http.ResponseWriter, r *http.Request) {
	id := model.InsightID(chi.URLParam(r, "id"))
	insight, err := s.uc.Insight.Get(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toInsightResponse(insight))
}

func (s *Server) listInsights(w http.ResponseWriter, r *http.Request) {
	filter := model.InsightFilter{
		TherapeuticArea: r.URL.Query().Get("therapeuticArea"),
		CompetitorID:    model.CompetitorID(r.URL.Query().Get("competitorId")),
	}
	insights, err := s.uc.Insight.List(r.Context(), auth.PrincipalFrom(r.Context()), filter)
	if err != nil {
		handleError(r, w, err)
		return
	}

	resp := make([]*insightResponse, len(insights))
	for i, insight := range insights {
		resp[i] = toInsightResponse(insight)
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) updateInsight(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := decodeJSON(r, &fields); err != nil {
		handleError(r, w, err)
		return
	}
	update, err := parseInsightUpdate(fields)
	if err != nil {
		handleError(r, w, err)
		return
	}

	id := model.InsightID(chi.URLParam(r, "id"))
	updated, err := s.uc.Insight.Update(r.Context(), auth.PrincipalFrom(r.Context()), id, update)
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toInsightResponse(updated))
}

func (s *Server) deleteInsight(w http.ResponseWriter, r *http.Request) {
	id := model.InsightID(chi.URLParam(r, "id"))
	if err := s.uc.Insight.Delete(r.Context(), auth.PrincipalFrom(r.Context()), id); err != nil {
		handleError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseInsightUpdate maps a JSON merge body onto a partial update: a missing key leaves
// the field unchanged and an explicit null clears it.
func parseInsightUpdate(fields map[string]json.RawMessage) (model.InsightUpdate, error) {
	var u model.InsightUpdate
	var err error

	if u.Title, err = optionalField[string](fields, "title"); err != nil {
		return u, err
	}
	if u.Description, err = optionalField[string](fields, "description"); err != nil {
		return u, err
	}
	if u.TherapeuticArea, err = optionalField[string](fields, "therapeuticArea"); err != nil {
		return u, err
	}
	if u.CompetitorID, err = optionalField[model.CompetitorID](fields, "competitorId"); err != nil {
		return u, err
	}
	if u.ImpactLevel, err = optionalField[types.ImpactLevel](fields, "impactLevel"); err != nil {
		return u, err
	}
	if u.RelevanceScore, err = optionalField[float64](fields, "relevanceScore"); err != nil {
		return u, err
	}

	category, err := optionalField[string](fields, "category")
	if err != nil {
		return u, err
	}
	if v, ok := category.Get(); ok {
		c, err := parseCategory(v)
		if err != nil {
			return u, err
		}
		u.Category = model.Some(c)
	} else if category.IsNull() {
		u.Category = model.Null[types.Category]()
	}

	published, err := optionalField[string](fields, "publishedDate")
	if err != nil {
		return u, err
	}
	if v, ok := published.Get(); ok {
		t, err := parseDate(v)
		if err != nil {
			return u, err
		}
		u.PublishedDate = model.Some(t)
	}

	return u, nil
}

func optionalField[T any](fields map[string]json.RawMessage, key string) (model.Optional[T], error) {
	raw, ok := fields[key]
	if !ok {
		return model.Optional[T]{}, nil
	}
	if string(raw) == "null" {
		return model.Null[T](), nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.Optional[T]{}, goerr.Wrap(usecase.ErrInvalidInput, "invalid field", goerr.V("field", key))
	}
	return model.Some(v), nil
}
