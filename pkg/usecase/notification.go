package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	goslack "github.com/slack-go/slack"

	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/service/slack"
	"github.com/secmon-lab/argus/pkg/utils/async"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

const (
	TriggerStatusOK      = "ok"
	TriggerStatusSkipped = "skipped"

	triggerSkipReason  = "No matching criteria in insight"
	directSendMessage  = "New insight matches your subscription preferences."
	triggerMessageHead = "New Insight: "
)

// TriggerInput describes a newly recorded insight to broadcast
type TriggerInput struct {
	InsightID       model.InsightID
	Title           string
	Description     string
	TherapeuticArea string
	CompetitorID    *model.CompetitorID
}

type TriggerResult struct {
	Status               string
	Reason               string
	MatchedSubscriptions int
	SentNotifications    int
}

type SendResult struct {
	NotificationID model.NotificationID
	Status         types.NotificationStatus
}

type NotificationUseCase struct {
	repo         interfaces.Repository
	slackService slack.Service
	slackChannel string
	slackTimeout time.Duration
	dispatcher   *async.Dispatcher
}

// NewNotificationUseCase creates the use case. Each Slack delivery is bounded by slackTimeout.
func NewNotificationUseCase(repo interfaces.Repository, slackService slack.Service, slackChannel string, slackTimeout time.Duration, dispatcher *async.Dispatcher) *NotificationUseCase {
	if dispatcher == nil {
		dispatcher = &async.Dispatcher{}
	}
	if slackTimeout <= 0 {
		slackTimeout = DefaultCallTimeout
	}
	return &NotificationUseCase{
		repo:         repo,
		slackService: slackService,
		slackChannel: slackChannel,
		slackTimeout: slackTimeout,
		dispatcher:   dispatcher,
	}
}

// Trigger records one SENT row per subscriber whose preferences match the insight's
// therapeutic area OR competitor. A user already notified about the insight is skipped.
func (uc *NotificationUseCase) Trigger(ctx context.Context, p *auth.Principal, input TriggerInput) (*TriggerResult, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	var competitorID model.CompetitorID
	if input.CompetitorID != nil {
		competitorID = *input.CompetitorID
	}
	if input.TherapeuticArea == "" && competitorID == "" {
		return &TriggerResult{Status: TriggerStatusSkipped, Reason: triggerSkipReason}, nil
	}

	subs, err := uc.repo.Subscription().ListMatching(ctx, input.TherapeuticArea, competitorID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list matching subscriptions", goerr.V(InsightIDKey, input.InsightID))
	}

	payload := model.NotificationPayload{
		InsightID:       input.InsightID,
		Title:           input.Title,
		Description:     input.Description,
		TherapeuticArea: input.TherapeuticArea,
		Message:         triggerMessageHead + input.Title,
	}
	correlationID := logging.CorrelationID(ctx)

	sent := 0
	for _, sub := range subs {
		history := &model.NotificationHistory{
			UserID:         sub.OwnerUserID,
			SubscriptionID: sub.ID,
			InsightID:      input.InsightID,
			Status:         types.NotificationStatusSent,
			Payload:        payload,
			CorrelationID:  correlationID,
		}
		created, err := uc.repo.Notification().CreateUnique(ctx, history)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to record notification",
				goerr.V(InsightIDKey, input.InsightID),
				goerr.V(UserIDKey, sub.OwnerUserID))
		}
		if !created {
			logging.From(ctx).Debug("user already notified", "insight_id", input.InsightID, "user_id", sub.OwnerUserID)
			continue
		}
		sent++

		if sub.HasChannel(ChannelSlack) {
			uc.deliverSlack(ctx, sub, payload)
		}
	}

	logging.From(ctx).Info("notifications triggered",
		"insight_id", input.InsightID,
		"matched", len(subs),
		"sent", sent,
	)

	return &TriggerResult{
		Status:               TriggerStatusOK,
		MatchedSubscriptions: len(subs),
		SentNotifications:    sent,
	}, nil
}

// Send records a SENT row for one subscription without duplicate checking
func (uc *NotificationUseCase) Send(ctx context.Context, p *auth.Principal, subscriptionID model.SubscriptionID, insightID model.InsightID) (*SendResult, error) {
	if err := p.Require(types.RoleAdmin); err != nil {
		return nil, err
	}

	sub, err := uc.repo.Subscription().Get(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrSubscriptionNotFound, "subscription not found", goerr.V(SubscriptionIDKey, subscriptionID))
		}
		return nil, goerr.Wrap(err, "failed to get subscription", goerr.V(SubscriptionIDKey, subscriptionID))
	}

	payload := model.NotificationPayload{
		InsightID: insightID,
		Message:   directSendMessage,
	}
	created, err := uc.repo.Notification().Create(ctx, &model.NotificationHistory{
		UserID:         sub.OwnerUserID,
		SubscriptionID: sub.ID,
		InsightID:      insightID,
		Status:         types.NotificationStatusSent,
		Payload:        payload,
		CorrelationID:  logging.CorrelationID(ctx),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to record notification",
			goerr.V(SubscriptionIDKey, subscriptionID),
			goerr.V(InsightIDKey, insightID))
	}

	if sub.HasChannel(ChannelSlack) {
		uc.deliverSlack(ctx, sub, payload)
	}

	return &SendResult{NotificationID: created.ID, Status: created.Status}, nil
}

func (uc *NotificationUseCase) ListMine(ctx context.Context, p *auth.Principal) ([]*model.NotificationHistory, error) {
	if err := p.Require(); err != nil {
		return nil, err
	}

	rows, err := uc.repo.Notification().ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notifications", goerr.V(UserIDKey, p.UserID))
	}
	return rows, nil
}

func (uc *NotificationUseCase) ListAll(ctx context.Context, p *auth.Principal) ([]*model.NotificationHistory, error) {
	if err := p.Require(types.RoleAdmin); err != nil {
		return nil, err
	}

	rows, err := uc.repo.Notification().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notifications")
	}
	return rows, nil
}

// MarkRead flags a row as read. Rows owned by another user are reported as missing.
func (uc *NotificationUseCase) MarkRead(ctx context.Context, p *auth.Principal, id model.NotificationID) error {
	if err := p.Require(); err != nil {
		return err
	}

	row, err := uc.repo.Notification().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return goerr.Wrap(ErrNotificationNotFound, "notification not found", goerr.V(NotificationIDKey, id))
		}
		return goerr.Wrap(err, "failed to get notification", goerr.V(NotificationIDKey, id))
	}
	if row.UserID != p.UserID {
		return goerr.Wrap(ErrNotificationNotFound, "notification not found",
			goerr.V(NotificationIDKey, id),
			goerr.V(UserIDKey, p.UserID))
	}

	if err := uc.repo.Notification().MarkRead(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to mark notification read", goerr.V(NotificationIDKey, id))
	}
	return nil
}

func (uc *NotificationUseCase) deliverSlack(ctx context.Context, sub *model.Subscription, payload model.NotificationPayload) {
	if uc.slackService == nil || uc.slackChannel == "" {
		return
	}

	blocks := buildNotificationBlocks(sub, payload)
	uc.dispatcher.Dispatch(ctx, "slack-notification", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, uc.slackTimeout)
		defer cancel()

		ts, err := uc.slackService.PostMessage(ctx, uc.slackChannel, blocks, payload.Message)
		if err != nil {
			return goerr.Wrap(err, "failed to post notification to slack",
				goerr.V(InsightIDKey, payload.InsightID),
				goerr.V(SubscriptionIDKey, sub.ID))
		}
		logging.From(ctx).Debug("notification posted to slack", "ts", ts, "insight_id", payload.InsightID)
		return nil
	})
}

func buildNotificationBlocks(sub *model.Subscription, payload model.NotificationPayload) []goslack.Block {
	header := payload.Message
	if payload.Title != "" {
		header = triggerMessageHead + payload.Title
	}

	blocks := []goslack.Block{
		goslack.NewHeaderBlock(
			goslack.NewTextBlockObject(goslack.PlainTextType, slack.TruncateRunes(header, slack.MaxHeaderChars), false, false),
		),
	}

	body := payload.Description
	if body == "" {
		body = payload.Message
	}
	blocks = append(blocks, goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, slack.TruncateRunes(body, slack.MaxSectionChars), false, false),
		nil, nil,
	))

	meta := fmt.Sprintf("Insight `%s` | subscriber `%s`", payload.InsightID, sub.OwnerUserID)
	if payload.TherapeuticArea != "" {
		meta = fmt.Sprintf("*%s* | %s", payload.TherapeuticArea, meta)
	}
	blocks = append(blocks, goslack.NewContextBlock("",
		goslack.NewTextBlockObject(goslack.MarkdownType, meta, false, false),
	))

	return blocks
}
