package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/types"
)

func runNotificationRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	newHistory := func(insightID model.InsightID, userID model.UserID) *model.NotificationHistory {
		return &model.NotificationHistory{
			UserID:         userID,
			SubscriptionID: "sub-1",
			InsightID:      insightID,
			Status:         types.NotificationStatusSent,
			Payload: model.NotificationPayload{
				InsightID: insightID,
				Title:     "title",
				Message:   "New Insight: title",
			},
			CorrelationID: "corr-1",
		}
	}

	t.Run("CreateUnique writes once per insight and user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		insightID := model.InsightID(uniq("insight"))
		user := model.UserID(uniq("user"))

		created, err := repo.Notification().CreateUnique(ctx, newHistory(insightID, user))
		gt.NoError(t, err).Required()
		gt.Bool(t, created).True()

		created, err = repo.Notification().CreateUnique(ctx, newHistory(insightID, user))
		gt.NoError(t, err).Required()
		gt.Bool(t, created).False()

		exists, err := repo.Notification().Exists(ctx, insightID, user)
		gt.NoError(t, err).Required()
		gt.Bool(t, exists).True()

		rows, err := repo.Notification().ListByInsight(ctx, insightID)
		gt.NoError(t, err).Required()
		gt.Array(t, rows).Length(1).Required()
		gt.Value(t, rows[0].Payload.Message).Equal("New Insight: title")
		gt.Value(t, rows[0].CorrelationID).Equal("corr-1")
	})

	t.Run("CreateUnique under concurrency writes once", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		insightID := model.InsightID(uniq("insight"))
		user := model.UserID(uniq("user"))

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				created, err := repo.Notification().CreateUnique(ctx, newHistory(insightID, user))
				if err == nil && created {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		rows, err := repo.Notification().ListByInsight(ctx, insightID)
		gt.NoError(t, err).Required()
		gt.Array(t, rows).Length(1)
		gt.Number(t, winners).Equal(1)
	})

	t.Run("Create does not deduplicate", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		insightID := model.InsightID(uniq("insight"))
		user := model.UserID(uniq("user"))

		_, err := repo.Notification().Create(ctx, newHistory(insightID, user))
		gt.NoError(t, err).Required()
		_, err = repo.Notification().Create(ctx, newHistory(insightID, user))
		gt.NoError(t, err).Required()

		rows, err := repo.Notification().ListByUser(ctx, user)
		gt.NoError(t, err).Required()
		gt.Array(t, rows).Length(2)
	})

	t.Run("ListByUser returns newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		user := model.UserID(uniq("user"))
		older := newHistory("insight-old", user)
		older.SentAt = time.Now().UTC().Add(-time.Hour)
		newer := newHistory("insight-new", user)
		newer.SentAt = time.Now().UTC()

		_, err := repo.Notification().Create(ctx, older)
		gt.NoError(t, err).Required()
		_, err = repo.Notification().Create(ctx, newer)
		gt.NoError(t, err).Required()

		rows, err := repo.Notification().ListByUser(ctx, user)
		gt.NoError(t, err).Required()
		gt.Array(t, rows).Length(2).Required()
		gt.Value(t, rows[0].InsightID).Equal(model.InsightID("insight-new"))
	})

	t.Run("MarkRead", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Notification().Create(ctx, newHistory(model.InsightID(uniq("insight")), "u1"))
		gt.NoError(t, err).Required()
		gt.Bool(t, created.Read).False()

		gt.NoError(t, repo.Notification().MarkRead(ctx, created.ID)).Required()

		got, err := repo.Notification().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.Read).True()

		gt.Error(t, repo.Notification().MarkRead(ctx, model.NotificationID(uniq("missing")))).Is(interfaces.ErrNotFound)
	})
}

func TestMemoryNotificationRepository(t *testing.T) {
	runNotificationRepositoryTest(t, newMemoryRepository)
}

func TestFirestoreNotificationRepository(t *testing.T) {
	runNotificationRepositoryTest(t, newFirestoreRepository)
}
