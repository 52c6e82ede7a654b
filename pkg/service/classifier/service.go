package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/types"
	"github.com/secmon-lab/argus/pkg/utils/errutil"
	"github.com/secmon-lab/argus/pkg/utils/logging"
)

const (
	DefaultMaxChars = 4000
	DefaultTimeout  = 30 * time.Second
)

// client implements Service
type client struct {
	llmClient gollem.LLMClient
	timeout   time.Duration
	maxChars  int
	archiver  Archiver
	onDefault func()
}

// Option is a functional option for client configuration
type Option func(*client)

// WithTimeout bounds each oracle call
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxChars sets how many characters of the document are sent to the oracle
func WithMaxChars(n int) Option {
	return func(c *client) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithArchiver stores every raw oracle response
func WithArchiver(a Archiver) Option {
	return func(c *client) {
		c.archiver = a
	}
}

// WithFallbackHook is called whenever the default classification is returned
func WithFallbackHook(fn func()) Option {
	return func(c *client) {
		c.onDefault = fn
	}
}

// New creates a classifier backed by the given LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient: llmClient,
		timeout:   DefaultTimeout,
		maxChars:  DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// disabled is used when no LLM provider is configured
type disabled struct {
	onDefault func()
}

// NewDisabled returns a Service that always yields the default classification
func NewDisabled(opts ...Option) Service {
	c := &client{}
	for _, opt := range opts {
		opt(c)
	}
	return &disabled{onDefault: c.onDefault}
}

func (d *disabled) Classify(ctx context.Context, input Input) model.Classification {
	if d.onDefault != nil {
		d.onDefault()
	}
	return model.DefaultClassification()
}

func (c *client) fallback() model.Classification {
	if c.onDefault != nil {
		c.onDefault()
	}
	return model.DefaultClassification()
}

// Classify asks the oracle for a classification of input.Text
func (c *client) Classify(ctx context.Context, input Input) model.Classification {
	logger := logging.From(ctx).With("document_id", input.DocumentID)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildResponseSchema()),
		gollem.WithSessionSystemPrompt(buildSystemPrompt(input.KnownEntities)),
	)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to create LLM session"), "classification unavailable")
		return c.fallback()
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(truncate(input.Text, c.maxChars))})
	if err != nil {
		logger.Warn("classification call failed", "error", err)
		return c.fallback()
	}
	if resp == nil || len(resp.Texts) == 0 || strings.TrimSpace(resp.Texts[0]) == "" {
		logger.Warn("classification returned empty response")
		return c.fallback()
	}

	raw := resp.Texts[0]
	c.archive(ctx, input.DocumentID, raw)

	var out llmResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &out); err != nil {
		logger.Warn("failed to parse classification", "error", err, "response", raw)
		return c.fallback()
	}

	return merge(out, input.KnownEntities)
}

func (c *client) archive(ctx context.Context, docID model.DocumentID, raw string) {
	if c.archiver == nil {
		return
	}
	key := fmt.Sprintf("classifications/%s/%d.json", docID, time.Now().UnixNano())
	if err := c.archiver.Put(ctx, key, []byte(raw)); err != nil {
		logging.From(ctx).Warn("failed to archive classification", "error", err, "key", key)
	}
}

// merge fills absent fields from the default classification
func merge(out llmResponse, known []model.KnownEntity) model.Classification {
	result := model.DefaultClassification()

	if out.Summary != nil && *out.Summary != "" {
		result.Summary = *out.Summary
	}
	if out.TherapeuticArea != nil && *out.TherapeuticArea != "" {
		result.TherapeuticArea = *out.TherapeuticArea
	}
	if out.Category != nil {
		if cat, err := types.ParseCategory(*out.Category); err == nil {
			result.Category = cat
		}
	}
	if out.ImpactLevel != nil && *out.ImpactLevel != "" {
		result.ImpactLevel = types.ImpactLevel(strings.TrimSpace(*out.ImpactLevel))
	}
	if out.RelevanceScore != nil {
		result.RelevanceScore = min(max(float64(*out.RelevanceScore), model.MinRelevanceScore), model.MaxRelevanceScore)
	}
	if e := out.Entities; e != nil {
		setIfPresent(&result.Entities.Company, e.Company)
		setIfPresent(&result.Entities.Drug, e.Drug)
		setIfPresent(&result.Entities.Phase, e.Phase)
		setIfPresent(&result.Entities.Indication, e.Indication)
	}
	if out.Tags != nil {
		result.Tags = out.Tags
	}
	result.MatchedEntityID = resolveMatch(out.MatchedEntityID, known)

	return result
}

func setIfPresent(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = strings.TrimSpace(*v)
	}
}

// resolveMatch keeps the matched ID only if it names an entity of the snapshot
func resolveMatch(id *string, known []model.KnownEntity) *model.CompetitorID {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	for _, e := range known {
		if string(e.ID) == v {
			matched := e.ID
			return &matched
		}
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// extractJSON strips markdown code fences some providers wrap around JSON output
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
