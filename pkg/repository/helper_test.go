package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/repository"
	"github.com/secmon-lab/argus/pkg/repository/firestore"
	"github.com/secmon-lab/argus/pkg/repository/memory"
	"github.com/secmon-lab/argus/pkg/repository/postgres"
)

func newMemoryRepository(t *testing.T) interfaces.Repository {
	t.Helper()
	return memory.New()
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("test_%d", time.Now().UnixNano())
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

// newPostgresRepository serves documents from PostgreSQL and everything else from memory
func newPostgresRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	dbURL := os.Getenv("TEST_POSTGRES_DSN")
	if dbURL == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	gt.NoError(t, postgres.RunMigrations(dbURL)).Required()

	db, err := postgres.Open(ctx, dbURL)
	gt.NoError(t, err).Required()

	_, err = db.ExecContext(ctx, `TRUNCATE documents`)
	gt.NoError(t, err).Required()

	repo := repository.WithDocumentStore(memory.New(), postgres.NewDocumentRepository(db), db.Close)
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

// uniq returns a value unique to this test run so shared backends do not collide
func uniq(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
