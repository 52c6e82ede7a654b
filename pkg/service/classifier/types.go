package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/secmon-lab/argus/pkg/domain/model"
)

// Service classifies one document. It never fails: when the oracle cannot produce a
// usable answer the default classification is returned.
type Service interface {
	Classify(ctx context.Context, input Input) model.Classification
}

// Input is the text to classify and the registry entities it may be matched against
type Input struct {
	DocumentID    model.DocumentID // used only to key archived responses
	Text          string
	KnownEntities []model.KnownEntity
}

// Archiver stores raw oracle responses for audit
type Archiver interface {
	Put(ctx context.Context, key string, data []byte) error
}

// llmResponse is the structured output requested from the LLM. Pointer fields tell
// absent keys apart from zero values.
type llmResponse struct {
	Summary         *string      `json:"summary"`
	TherapeuticArea *string      `json:"therapeutic_area"`
	Category        *string      `json:"category"`
	ImpactLevel     *string      `json:"impact_level"`
	RelevanceScore  *flexFloat   `json:"relevance_score"`
	Entities        *llmEntities `json:"entities"`
	MatchedEntityID *string      `json:"matched_entity_id"`
	Tags            []string     `json:"tags"`
}

type llmEntities struct {
	Company    *string `json:"company"`
	Drug       *string `json:"drug"`
	Phase      *string `json:"phase"`
	Indication *string `json:"indication"`
}

// flexFloat accepts both 7.5 and "7.5"
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

var _ json.Unmarshaler = (*flexFloat)(nil)
