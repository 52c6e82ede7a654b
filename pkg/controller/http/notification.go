package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/usecase"
)

type triggerRequest struct {
	InsightID       model.InsightID     `json:"insightId"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	TherapeuticArea string              `json:"therapeuticArea"`
	CompetitorID    *model.CompetitorID `json:"competitorId"`
}

type triggerResponse struct {
	Status               string `json:"status"`
	Reason               string `json:"reason,omitempty"`
	MatchedSubscriptions int    `json:"matched_subscriptions"`
	SentNotifications    int    `json:"sent_notifications"`
}

type sendRequest struct {
	SubscriptionID model.SubscriptionID `json:"subscriptionId"`
	InsightID      model.InsightID      `json:"insightId"`
}

type sendResponse struct {
	NotificationID model.NotificationID     `json:"notificationId"`
	Status         types.NotificationStatus `json:"status"`
}

type notificationResponse struct {
	ID             model.NotificationID      `json:"id"`
	UserID         model.UserID              `json:"userId"`
	SubscriptionID model.SubscriptionID      `json:"subscriptionId"`
	InsightID      model.InsightID           `json:"insightId"`
	Status         types.NotificationStatus  `json:"status"`
	Payload        model.NotificationPayload `json:"payload"`
	CorrelationID  string                    `json:"correlationId,omitempty"`
	Read           bool                      `json:"read"`
	SentAt         time.Time                 `json:"sentAt"`
}

func writeNotifications(w http.ResponseWriter, r *http.Request, rows []*model.NotificationHistory) {
	resp := make([]*notificationResponse, len(rows))
	for i, h := range rows {
		resp[i] = &notificationResponse{
			ID:             h.ID,
			UserID:         h.UserID,
			SubscriptionID: h.SubscriptionID,
			InsightID:      h.InsightID,
			Status:         h.Status,
			Payload:        h.Payload,
			CorrelationID:  h.CorrelationID,
			Read:           h.Read,
			SentAt:         h.SentAt,
		}
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) triggerNotifications(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(r, w, err)
		return
	}

	result, err := s.uc.Notification.Trigger(r.Context(), auth.PrincipalFrom(r.Context()), usecase.TriggerInput{
		InsightID:       req.InsightID,
		Title:           req.Title,
		Description:     req.Description,
		TherapeuticArea: req.TherapeuticArea,
		CompetitorID:    req.CompetitorID,
	})
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, triggerResponse{
		Status:               result.Status,
		Reason:               result.Reason,
		MatchedSubscriptions: result.MatchedSubscriptions,
		SentNotifications:    result.SentNotifications,
	})
}

func (s *Server) sendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(r, w, err)
		return
	}

	result, err := s.uc.Notification.Send(r.Context(), auth.PrincipalFrom(r.Context()), req.SubscriptionID, req.InsightID)
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, sendResponse{NotificationID: result.NotificationID, Status: result.Status})
}

func (s *Server) listMyNotifications(w http.ResponseWriter, r *http.Request) {
	rows, err := s.uc.Notification.ListMine(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeNotifications(w, r, rows)
}

func (s *Server) listAllNotifications(w http.ResponseWriter, r *http.Request) {
	rows, err := s.uc.Notification.ListAll(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeNotifications(w, r, rows)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := model.NotificationID(chi.URLParam(r, "id"))
	if err := s.uc.Notification.MarkRead(r.Context(), auth.PrincipalFrom(r.Context()), id); err != nil {
		handleError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
