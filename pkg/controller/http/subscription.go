package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/usecase"
)

type subscriptionRequest struct {
	TherapeuticAreas []string             `json:"therapeuticAreas"`
	CompetitorIDs    []model.CompetitorID `json:"competitorIds"`
	Channels         []string             `json:"channels"`
}

type subscriptionResponse struct {
	ID               model.SubscriptionID `json:"id"`
	UserID           model.UserID         `json:"userId"`
	TherapeuticAreas []string             `json:"therapeuticAreas"`
	CompetitorIDs    []model.CompetitorID `json:"competitorIds"`
	Channels         []string             `json:"channels"`
	CreatedAt        time.Time            `json:"createdAt"`
}

func toSubscriptionResponse(sub *model.Subscription) *subscriptionResponse {
	ids := sub.CompetitorIDs
	if ids == nil {
		ids = []model.CompetitorID{}
	}
	return &subscriptionResponse{
		ID:               sub.ID,
		UserID:           sub.OwnerUserID,
		TherapeuticAreas: nonNil(sub.TherapeuticAreas),
		CompetitorIDs:    ids,
		Channels:         nonNil(sub.Channels),
		CreatedAt:        sub.CreatedAt,
	}
}

func writeSubscriptions(w http.ResponseWriter, r *http.Request, subs []*model.Subscription) {
	resp := make([]*subscriptionResponse, len(subs))
	for i, sub := range subs {
		resp[i] = toSubscriptionResponse(sub)
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(r, w, err)
		return
	}

	created, err := s.uc.Subscription.Create(r.Context(), auth.PrincipalFrom(r.Context()), usecase.CreateSubscriptionInput{
		TherapeuticAreas: req.TherapeuticAreas,
		CompetitorIDs:    req.CompetitorIDs,
		Channels:         req.Channels,
	})
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, toSubscriptionResponse(created))
}

func (s *Server) listMySubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.uc.Subscription.ListMine(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeSubscriptions(w, r, subs)
}

func (s *Server) listAllSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.uc.Subscription.ListAll(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeSubscriptions(w, r, subs)
}

func (s *Server) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := model.SubscriptionID(chi.URLParam(r, "id"))
	if err := s.uc.Subscription.Delete(r.Context(), auth.PrincipalFrom(r.Context()), id); err != nil {
		handleError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
