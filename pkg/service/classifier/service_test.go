package classifier_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/service/classifier"
)

type mockSession struct {
	generateFn func(ctx context.Context, input []gollem.Input) (*gollem.Response, error)
}

func (s *mockSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.generateFn(ctx, input)
}

func (s *mockSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.generateFn(ctx, input)
}

func (s *mockSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return c.newSessionFn(ctx, options...)
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func respondWith(text string, err error) *mockLLMClient {
	return &mockLLMClient{
		newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			return &mockSession{
				generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
					if err != nil {
						return nil, err
					}
					return &gollem.Response{Texts: []string{text}}, nil
				},
			}, nil
		},
	}
}

var known = []model.KnownEntity{
	{ID: "comp-aaaa1111", Name: "Acme Pharma"},
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("full response is mapped", func(t *testing.T) {
		svc, err := classifier.New(respondWith(`{
			"summary": "Acme reports positive Phase 3 data.",
			"therapeutic_area": "Oncology",
			"category": "Clinical Trial",
			"impact_level": "High",
			"relevance_score": 9.5,
			"entities": {"company": "Acme Pharma", "drug": "AC-101", "phase": "Phase 3", "indication": "NSCLC"},
			"matched_entity_id": "comp-aaaa1111",
			"tags": ["oncology", "phase 3"]
		}`, nil))
		gt.NoError(t, err).Required()

		got := svc.Classify(ctx, classifier.Input{Text: "text", KnownEntities: known})
		gt.Value(t, got.Summary).Equal("Acme reports positive Phase 3 data.")
		gt.Value(t, got.Category).Equal(types.CategoryClinicalTrial)
		gt.Value(t, got.ImpactLevel).Equal(types.ImpactHigh)
		gt.Number(t, got.RelevanceScore).Equal(9.5)
		gt.Value(t, got.Entities.Drug).Equal("AC-101")
		gt.Value(t, got.MatchedEntityID).NotNil().Required()
		gt.Value(t, *got.MatchedEntityID).Equal(model.CompetitorID("comp-aaaa1111"))
		gt.Array(t, got.Tags).Length(2)
	})

	t.Run("call failure yields default", func(t *testing.T) {
		svc, err := classifier.New(respondWith("", errors.New("unreachable")))
		gt.NoError(t, err).Required()

		got := svc.Classify(ctx, classifier.Input{Text: "text"})
		gt.Value(t, got).Equal(model.DefaultClassification())
	})

	t.Run("unparseable output yields default", func(t *testing.T) {
		svc, err := classifier.New(respondWith("not json at all", nil))
		gt.NoError(t, err).Required()

		got := svc.Classify(ctx, classifier.Input{Text: "text"})
		gt.Value(t, got).Equal(model.DefaultClassification())
	})

	t.Run("empty output yields default", func(t *testing.T) {
		svc, err := classifier.New(respondWith("  ", nil))
		gt.NoError(t, err).Required()

		got := svc.Classify(ctx, classifier.Input{Text: "text"})
		gt.Value(t, got.Summary).Equal("Analysis unavailable.")
	})

	t.Run("partial output is filled from default", func(t *testing.T) {
		svc, err := classifier.New(respondWith(`{"summary": "Short note", "entities": {"drug": "XY-9"}}`, nil))
		gt.NoError(t, err).Required()

		got := svc.Classify(ctx, classifier.Input{Text: "text"})
		gt.Value(t, got.Summary).Equal("Short note")
		gt.Value(t, got.TherapeuticArea).Equal("General")
		gt.Value(t, got.Category).Equal(types.CategoryGeneral)
		gt.Value(t, got.ImpactLevel).Equal(types.ImpactLow)
		gt.Number(t, got.RelevanceScore).Equal(3.0)
		gt.Value(t, got.Entities.Drug).Equal("XY-9")
		gt.Value(t, got.Entities.Phase).Equal(model.NotAvailable)
		gt.Value(t, got.MatchedEntityID).Nil()
		gt.Array(t, got.Tags).Length(0)
	})

	t.Run("unknown matched ID is dropped", func(t *testing.T) {
		svc, err := classifier.New(respondWith(`{"summary": "s", "matched_entity_id": "comp-unknown"}`, nil))
		gt.NoError(t, err).Required()

		got := svc.Classify(ctx, classifier.Input{Text: "text", KnownEntities: known})
		gt.Value(t, got.MatchedEntityID).Nil()
	})

	t.Run("unknown category degrades and unknown impact is kept", func(t *testing.T) {
		svc, err := classifier.New(respondWith(`{"category": "Rumor", "impact_level": "Critical", "relevance_score": "7.25"}`, nil))
		gt.NoError(t, err).Required()

		got := svc.Classify(ctx, classifier.Input{Text: "text"})
		gt.Value(t, got.Category).Equal(types.CategoryGeneral)
		gt.Value(t, got.ImpactLevel).Equal(types.ImpactLevel("Critical"))
		gt.Number(t, got.RelevanceScore).Equal(7.25)
	})

	t.Run("score is clamped to range", func(t *testing.T) {
		svc, err := classifier.New(respondWith(`{"relevance_score": 42}`, nil))
		gt.NoError(t, err).Required()

		got := svc.Classify(ctx, classifier.Input{Text: "text"})
		gt.Number(t, got.RelevanceScore).Equal(10.0)
	})

	t.Run("fenced JSON is accepted", func(t *testing.T) {
		svc, err := classifier.New(respondWith("```json\n{\"summary\": \"fenced\"}\n```", nil))
		gt.NoError(t, err).Required()

		got := svc.Classify(ctx, classifier.Input{Text: "text"})
		gt.Value(t, got.Summary).Equal("fenced")
	})

	t.Run("input is truncated", func(t *testing.T) {
		var sent string
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockSession{
					generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
						if txt, ok := input[0].(gollem.Text); ok {
							sent = string(txt)
						}
						return &gollem.Response{Texts: []string{`{}`}}, nil
					},
				}, nil
			},
		}
		svc, err := classifier.New(llm, classifier.WithMaxChars(10))
		gt.NoError(t, err).Required()

		svc.Classify(ctx, classifier.Input{Text: strings.Repeat("a", 50)})
		gt.Value(t, sent).Equal(strings.Repeat("a", 10))
	})

	t.Run("timeout yields default", func(t *testing.T) {
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockSession{
					generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
						<-ctx.Done()
						return nil, ctx.Err()
					},
				}, nil
			},
		}
		svc, err := classifier.New(llm, classifier.WithTimeout(20*time.Millisecond))
		gt.NoError(t, err).Required()

		got := svc.Classify(ctx, classifier.Input{Text: "text"})
		gt.Value(t, got).Equal(model.DefaultClassification())
	})

	t.Run("fallback hook counts defaults", func(t *testing.T) {
		calls := 0
		svc, err := classifier.New(respondWith("", errors.New("down")), classifier.WithFallbackHook(func() { calls++ }))
		gt.NoError(t, err).Required()

		svc.Classify(ctx, classifier.Input{Text: "text"})
		gt.Number(t, calls).Equal(1)
	})

	t.Run("nil client is rejected", func(t *testing.T) {
		_, err := classifier.New(nil)
		gt.Error(t, err)
	})
}

type memArchiver struct {
	mu   sync.Mutex
	keys []string
}

func (a *memArchiver) Put(ctx context.Context, key string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	return nil
}

func TestClassifyArchivesRawResponse(t *testing.T) {
	archiver := &memArchiver{}
	svc, err := classifier.New(respondWith(`{"summary": "s"}`, nil), classifier.WithArchiver(archiver))
	gt.NoError(t, err).Required()

	svc.Classify(context.Background(), classifier.Input{DocumentID: "doc-12345678", Text: "text"})
	gt.Array(t, archiver.keys).Length(1).Required()
	gt.String(t, archiver.keys[0]).Contains("classifications/doc-12345678/")
}

func TestDisabled(t *testing.T) {
	calls := 0
	svc := classifier.NewDisabled(classifier.WithFallbackHook(func() { calls++ }))

	got := svc.Classify(context.Background(), classifier.Input{Text: "text"})
	gt.Value(t, got).Equal(model.DefaultClassification())
	gt.Number(t, calls).Equal(1)
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := classifier.BuildSystemPrompt(known)
	gt.String(t, prompt).Contains("ID: comp-aaaa1111, Name: Acme Pharma")
	gt.String(t, prompt).Contains(`"Clinical Trial"`)

	empty := classifier.BuildSystemPrompt(nil)
	gt.String(t, empty).Contains("return null for matched_entity_id")
}

func TestBuildResponseSchema(t *testing.T) {
	schema := classifier.BuildResponseSchema()
	gt.NoError(t, schema.Validate())

	for _, name := range []string{"summary", "therapeutic_area", "category", "impact_level", "relevance_score", "entities", "tags"} {
		prop, ok := schema.Properties[name]
		gt.Bool(t, ok).True()
		gt.Bool(t, prop.Required).Describef("property %s", name).True()
	}
	for name, prop := range schema.Properties["entities"].Properties {
		gt.Bool(t, prop.Required).Describef("entity %s", name).True()
	}
	gt.Bool(t, schema.Properties["matched_entity_id"].Required).False()
}

func TestTruncateCountsRunes(t *testing.T) {
	gt.Value(t, classifier.Truncate("日本語テキスト", 3)).Equal("日本語")
	gt.Value(t, classifier.Truncate("short", 10)).Equal("short")
}

func TestClassify_WithRealGemini(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT not set")
	}

	location := os.Getenv("TEST_GEMINI_LOCATION")
	if location == "" {
		t.Skip("TEST_GEMINI_LOCATION not set")
	}

	ctx := context.Background()
	llmClient, err := gemini.New(ctx, projectID, location)
	gt.NoError(t, err).Required()

	svc, err := classifier.New(llmClient)
	gt.NoError(t, err).Required()

	got := svc.Classify(ctx, classifier.Input{
		Text: "Acme Pharma announces positive topline results from the Phase 3 trial NCT01234567 of AC-101 in non-small cell lung cancer.",
		KnownEntities: known,
	})
	gt.String(t, got.Summary).NotEqual("Analysis unavailable.")
	gt.Value(t, got.MatchedEntityID).NotNil()
}
