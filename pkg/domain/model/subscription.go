package model

import (
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// UserID identifies an end user (or the system principal)
type UserID string

// SubscriptionID identifies a subscription
type SubscriptionID string

// NewSubscriptionID generates a new SubscriptionID
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID(newShortID("sub"))
}

// Subscription is a user's interest filter used to route notifications
type Subscription struct {
	ID               SubscriptionID
	OwnerUserID      UserID
	TherapeuticAreas []string
	CompetitorIDs    []CompetitorID
	Channels         []string
	CreatedAt        time.Time
}

// Validate requires at least one therapeutic area or competitor ID
func (s *Subscription) Validate() error {
	if s.OwnerUserID == "" {
		return goerr.New("subscription owner is required")
	}
	if len(s.TherapeuticAreas) == 0 && len(s.CompetitorIDs) == 0 {
		return goerr.New("at least one preference (therapeuticAreas or competitorIds) is required")
	}
	return nil
}

// Matches reports whether the subscription covers the therapeutic area OR the competitor.
// Empty criteria never match.
func (s *Subscription) Matches(therapeuticArea string, competitorID CompetitorID) bool {
	if therapeuticArea != "" && slices.Contains(s.TherapeuticAreas, therapeuticArea) {
		return true
	}
	if competitorID != "" && slices.Contains(s.CompetitorIDs, competitorID) {
		return true
	}
	return false
}

// HasChannel reports whether the subscription asks for delivery on channel
func (s *Subscription) HasChannel(channel string) bool {
	return slices.Contains(s.Channels, channel)
}
