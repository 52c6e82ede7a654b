package usecase_test

import (
	"context"
	"sync"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/repository/memory"
	"github.com/secmon-lab/argus/pkg/service/classifier"
)

var (
	admin     = &auth.Principal{Subject: "alice", UserID: "u-admin", Role: types.RoleAdmin}
	analyst   = &auth.Principal{Subject: "bob", UserID: "u-analyst", Role: types.RoleAnalyst}
	executive = &auth.Principal{Subject: "carol", UserID: "u-exec", Role: types.RoleExecutive}
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
}

type mockClassifier struct {
	mu         sync.Mutex
	classifyFn func(ctx context.Context, input classifier.Input) model.Classification
	inputs     []classifier.Input
}

func (m *mockClassifier) Classify(ctx context.Context, input classifier.Input) model.Classification {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()

	if m.classifyFn != nil {
		return m.classifyFn(ctx, input)
	}
	return model.DefaultClassification()
}

func (m *mockClassifier) calls() []classifier.Input {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]classifier.Input(nil), m.inputs...)
}

type mockTokenService struct {
	systemTokenFn func(ctx context.Context) (string, error)
	verifyFn      func(ctx context.Context, raw string) (*auth.Principal, error)
	minted        int
}

func (m *mockTokenService) SystemToken(ctx context.Context) (string, error) {
	m.minted++
	if m.systemTokenFn != nil {
		return m.systemTokenFn(ctx)
	}
	return "system-token", nil
}

func (m *mockTokenService) Verify(ctx context.Context, raw string) (*auth.Principal, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, raw)
	}
	return auth.System(), nil
}

type postedMessage struct {
	channelID string
	blocks    []goslack.Block
	text      string
}

type mockSlack struct {
	mu     sync.Mutex
	posted []postedMessage
	err    error
}

func (m *mockSlack) PostMessage(ctx context.Context, channelID string, blocks []goslack.Block, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.posted = append(m.posted, postedMessage{channelID: channelID, blocks: blocks, text: text})
	return "1700000000.000100", nil
}

func (m *mockSlack) messages() []postedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]postedMessage(nil), m.posted...)
}

// faultyRepository lets a test swap individual stores of an in-memory repository
type faultyRepository struct {
	*memory.Memory
	competitor interfaces.CompetitorRepository
	insight    interfaces.InsightRepository
	document   interfaces.DocumentRepository
}

func (r *faultyRepository) Document() interfaces.DocumentRepository {
	if r.document != nil {
		return r.document
	}
	return r.Memory.Document()
}

func (r *faultyRepository) Competitor() interfaces.CompetitorRepository {
	if r.competitor != nil {
		return r.competitor
	}
	return r.Memory.Competitor()
}

func (r *faultyRepository) Insight() interfaces.InsightRepository {
	if r.insight != nil {
		return r.insight
	}
	return r.Memory.Insight()
}

type faultyCompetitors struct {
	interfaces.CompetitorRepository
	listErr   error
	upsertErr error
	listCalls int
}

func (f *faultyCompetitors) List(ctx context.Context) ([]*model.Competitor, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.CompetitorRepository.List(ctx)
}

func (f *faultyCompetitors) UpsertTrial(ctx context.Context, competitorID model.CompetitorID, trial *model.ClinicalTrial) (*model.ClinicalTrial, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return f.CompetitorRepository.UpsertTrial(ctx, competitorID, trial)
}

// faultyInsights fails the first failCreates calls to Create
type faultyInsights struct {
	interfaces.InsightRepository
	failCreates int
	err         error
}

func (f *faultyInsights) Create(ctx context.Context, insight *model.Insight) (*model.Insight, error) {
	if f.failCreates > 0 {
		f.failCreates--
		return nil, f.err
	}
	return f.InsightRepository.Create(ctx, insight)
}

// faultyDocuments fails the first failMarks calls to MarkProcessed
type faultyDocuments struct {
	interfaces.DocumentRepository
	failMarks int
	err       error
}

func (f *faultyDocuments) MarkProcessed(ctx context.Context, id model.DocumentID) error {
	if f.failMarks > 0 {
		f.failMarks--
		return f.err
	}
	return f.DocumentRepository.MarkProcessed(ctx, id)
}

func ptr[T any](v T) *T {
	return &v
}
