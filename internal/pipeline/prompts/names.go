package prompts

type PromptName string

const (
	// Tier 2 batch pass
	PromptBatchNormalize PromptName = "batch_normalize"
	PromptChunkNormalize PromptName = "chunk_normalize" // single-chunk fallback

	// Classification
	PromptClassifyDocument PromptName = "classify_document" // Tier 1 whole-document
	PromptClassifyFallback PromptName = "classify_fallback" // low-confidence aggregate rescue

	// Section extraction
	PromptSectionDeclarations      PromptName = "section_declarations"
	PromptSectionCoverages         PromptName = "section_coverages"
	PromptSectionConditions        PromptName = "section_conditions"
	PromptSectionExclusions        PromptName = "section_exclusions"
	PromptSectionEndorsements      PromptName = "section_endorsements"
	PromptSectionDefinitions       PromptName = "section_definitions"
	PromptSectionInsuringAgreement PromptName = "section_insuring_agreement"
	PromptSectionPremiumSummary    PromptName = "section_premium_summary"
	PromptSectionDefault           PromptName = "section_default"

	// Pass 2 + Tier 3
	PromptRelationshipExtract  PromptName = "relationship_extract"
	PromptValidationConflicts  PromptName = "validation_conflicts"
)
