package classifier

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/types"
)

func buildSystemPrompt(known []model.KnownEntity) string {
	var sb strings.Builder

	sb.WriteString("You are an expert medical and competitor intelligence analyst. ")
	sb.WriteString("Analyze the following medical news or clinical trial text. ")
	sb.WriteString("Extract structured data and classify its importance for a pharmaceutical competitive intelligence dashboard.\n\n")

	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. summary: a concise executive summary (1-2 sentences).\n")
	sb.WriteString("2. therapeutic_area: the primary therapeutic area (e.g. Oncology, Cardiovascular, Respiratory, Immunology, Neurology).\n")
	fmt.Fprintf(&sb, "3. category: one of %s.\n", quoteCategories())
	sb.WriteString("4. impact_level: High (major trial results, approvals), Medium (Phase 2, filings) or Low (pre-clinical, general news).\n")
	sb.WriteString("5. relevance_score: 0.0 to 10.0. 9-10 breakthrough results or major approvals, 6-8 significant trials or filings, 3-5 routine updates, 0-2 tangential news.\n")
	fmt.Fprintf(&sb, "6. entities: company, drug (name or code), phase and indication. Use %q for anything not mentioned.\n", model.NotAvailable)
	sb.WriteString("7. tags: a short list of relevant keywords.\n")

	if len(known) > 0 {
		sb.WriteString("\n## Known competitors:\n\n")
		sb.WriteString("If the document is about one of these companies (including abbreviations, subsidiaries or alternate names), ")
		sb.WriteString("return its exact ID in matched_entity_id. Otherwise return null.\n\n")
		for _, e := range known {
			fmt.Fprintf(&sb, "- ID: %s, Name: %s\n", e.ID, e.Name)
		}
	} else {
		sb.WriteString("\nNo competitors are tracked; return null for matched_entity_id.\n")
	}

	return sb.String()
}

func quoteCategories() string {
	all := types.AllCategories()
	quoted := make([]string, len(all))
	for i, c := range all {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(quoted, ", ")
}

func buildResponseSchema() *gollem.Parameter {
	str := func(desc string) *gollem.Parameter {
		return &gollem.Parameter{Type: gollem.TypeString, Description: desc, Required: true}
	}

	return &gollem.Parameter{
		Title:       "DocumentClassification",
		Description: "Classification of a competitive intelligence document",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"summary":          str("Concise executive summary"),
			"therapeutic_area": str("Primary therapeutic area"),
			"category":         str("Document category"),
			"impact_level":     str("High, Medium or Low"),
			"relevance_score": {
				Type:        gollem.TypeNumber,
				Description: "Relevance from 0.0 to 10.0",
				Required:    true,
			},
			"entities": {
				Type:        gollem.TypeObject,
				Description: "Named entities extracted from the document",
				Required:    true,
				Properties: map[string]*gollem.Parameter{
					"company":    str("Primary company"),
					"drug":       str("Drug name or code"),
					"phase":      str("Trial phase"),
					"indication": str("Target disease or indication"),
				},
			},
			"matched_entity_id": {
				Type:        gollem.TypeString,
				Description: "ID of the matched known competitor, or null",
			},
			"tags": {
				Type:        gollem.TypeArray,
				Description: "Relevant keywords",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
				Required:    true,
			},
		},
	}
}
