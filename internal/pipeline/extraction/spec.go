package extraction

import (
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
)

// sectionSpec binds a section type to its prompt and the response key that
// carries the section's extracted data.
type sectionSpec struct {
	prompt  prompts.PromptName
	dataKey string
	isList  bool
}

// specFor is the closed dispatch table. Every SectionType has a spec; types
// without a dedicated extractor run the generic one, so an unexpected section
// still produces an LLM extraction instead of an error.
func specFor(st domain.SectionType) sectionSpec {
	switch st {
	case domain.SectionDeclarations:
		return sectionSpec{prompt: prompts.PromptSectionDeclarations, dataKey: "fields"}
	case domain.SectionCoverages:
		return sectionSpec{prompt: prompts.PromptSectionCoverages, dataKey: "coverages", isList: true}
	case domain.SectionConditions:
		return sectionSpec{prompt: prompts.PromptSectionConditions, dataKey: "conditions", isList: true}
	case domain.SectionExclusions:
		return sectionSpec{prompt: prompts.PromptSectionExclusions, dataKey: "exclusions", isList: true}
	case domain.SectionEndorsements:
		return sectionSpec{prompt: prompts.PromptSectionEndorsements, dataKey: "endorsements", isList: true}
	case domain.SectionDefinitions:
		return sectionSpec{prompt: prompts.PromptSectionDefinitions, dataKey: "definitions", isList: true}
	case domain.SectionInsuringAgreement:
		return sectionSpec{prompt: prompts.PromptSectionInsuringAgreement, dataKey: "fields"}
	case domain.SectionPremiumSummary:
		return sectionSpec{prompt: prompts.PromptSectionPremiumSummary, dataKey: "fields"}
	case domain.SectionScheduleOfValues, domain.SectionLossRun, domain.SectionFinancialStatement:
		// Table-only sections are filtered out before extraction; the generic
		// spec covers a caller that routes one here anyway.
		return sectionSpec{prompt: prompts.PromptSectionDefault, dataKey: "fields"}
	case domain.SectionUnknown:
		return sectionSpec{prompt: prompts.PromptSectionDefault, dataKey: "fields"}
	default:
		return sectionSpec{prompt: prompts.PromptSectionDefault, dataKey: "fields"}
	}
}

// extractData pulls the section's structured payload out of the raw parsed
// response, under the key this section's schema uses.
func (s sectionSpec) extractData(obj map[string]any) map[string]any {
	if s.isList {
		items, _ := obj[s.dataKey].([]any)
		return map[string]any{s.dataKey: items}
	}
	fields, ok := obj[s.dataKey].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return fields
}
