package prompts

import "sync"

var registerOnce sync.Once

// RegisterAll registers every prompt via RegisterSpec(Spec{...}). Safe to
// call from multiple constructors.
func RegisterAll() {
	registerOnce.Do(registerAll)
}

func registerAll() {
	// ---------- Tier 2 batch pass ----------

	RegisterSpec(Spec{
		Name:       PromptBatchNormalize,
		Version:    2,
		SchemaName: "batch_normalize",
		Schema:     BatchNormalizeSchema,
		System: `
You clean OCR text from scanned insurance documents and extract structured signals.
For EVERY chunk_id in the input you must return one result object. Never skip a chunk.
Fix OCR artifacts (broken words, stray characters, merged lines) without changing meaning.
Entity types must come from the closed list. Signal scores are numbers in [0,1].
Return JSON only.`,
		User: `
Entity types: {{.EntityTypesCSV}}
Section types: {{.SectionTypesCSV}}
Document types (signal keys): {{.DocTypesCSV}}

Chunks (JSON array of {chunk_id, page_number, text}):
{{.ChunkBatchJSON}}

For each chunk return:
- chunk_id: echoed exactly.
- normalized_text: cleaned text, same content, no summarization.
- section_type: one of the section types.
- entities: mentions found in THIS chunk with raw_value, normalized_value, confidence, span offsets into normalized_text.
- signals: score per document type, 0.0 when no evidence.
- quality_score: 0..1 estimate of OCR quality after cleaning.`,
		Validators: []Validator{
			RequireNonEmpty("ChunkBatchJSON", func(in Input) string { return in.ChunkBatchJSON }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptChunkNormalize,
		Version:    1,
		SchemaName: "chunk_normalize",
		Schema:     ChunkNormalizeSchema,
		System: `
You clean OCR text from one chunk of a scanned insurance document and extract structured signals.
Entity types must come from the closed list. Signal scores are numbers in [0,1].
Return JSON only.`,
		User: `
Entity types: {{.EntityTypesCSV}}
Section types: {{.SectionTypesCSV}}
Document types (signal keys): {{.DocTypesCSV}}

chunk_id: {{.ChunkID}}
Text:
{{.ChunkText}}

Return one result object with chunk_id echoed exactly, normalized_text,
section_type, entities, signals, quality_score.`,
		Validators: []Validator{
			RequireNonEmpty("ChunkID", func(in Input) string { return in.ChunkID }),
			RequireNonEmpty("ChunkText", func(in Input) string { return in.ChunkText }),
		},
	})

	// ---------- Classification ----------

	RegisterSpec(Spec{
		Name:       PromptClassifyDocument,
		Version:    1,
		SchemaName: "classify_document",
		Schema:     ClassifyDocumentSchema,
		System: `
You classify scanned insurance documents and locate their major sections.
document_type MUST be one of the listed types. Section types MUST come from the listed taxonomy.
Return JSON only.`,
		User: `
Document types: {{.DocTypesCSV}}
Section types: {{.SectionTypesCSV}}

Document pages (truncated):
{{.PagesExcerpt}}

Return document_type, an optional document_subtype, confidence in [0,1], and
section_boundaries as a list of {section_type, start_page, end_page, confidence}.
Pages are 1-based. Omit sections you cannot locate rather than guessing.`,
		Validators: []Validator{
			RequireNonEmpty("PagesExcerpt", func(in Input) string { return in.PagesExcerpt }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptClassifyFallback,
		Version:    1,
		SchemaName: "classify_fallback",
		Schema:     ClassifyFallbackSchema,
		System: `
You resolve a low-confidence insurance document classification.
document_type MUST be exactly one of the listed types. Return JSON only.`,
		User: `
Document types: {{.DocTypesCSV}}

Aggregated scores so far:
{{.ScoresJSON}}

Strongest keywords observed: {{.KeywordsCSV}}

Representative chunk texts:
{{.TopChunksText}}

Pick the single best document_type, a confidence in [0,1], and one sentence of reasoning.`,
	})

	// ---------- Section extraction ----------

	RegisterSpec(Spec{
		Name:       PromptSectionDeclarations,
		Version:    1,
		SchemaName: "section_declarations",
		Schema:     SectionFieldsSchema,
		System: `
You extract structured fields from the DECLARATIONS section of an insurance policy.
Return JSON only. Use null for fields not present; never invent values.`,
		User: `
Entity types: {{.EntityTypesCSV}}

Section text:
{{.SectionText}}

Return fields with at least: policy_number, insured_name, carrier_name, broker_name,
effective_date (YYYY-MM-DD), expiration_date (YYYY-MM-DD), total_premium (number),
mailing_address, policy_type. Also return entities mentioned in this section and a
confidence in [0,1].`,
		Validators: []Validator{
			RequireNonEmpty("SectionText", func(in Input) string { return in.SectionText }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptSectionCoverages,
		Version:    1,
		SchemaName: "section_coverages",
		Schema:     SectionCoveragesSchema,
		System: `
You extract the coverage schedule from the COVERAGES section of an insurance policy.
Return JSON only. Amounts are plain numbers without currency symbols.`,
		User: `
Entity types: {{.EntityTypesCSV}}

Section text:
{{.SectionText}}

Return coverages as a list of {coverage_type, limit, deductible, premium_amount},
plus entities and a confidence in [0,1].`,
		Validators: []Validator{
			RequireNonEmpty("SectionText", func(in Input) string { return in.SectionText }),
		},
	})

	registerListSection(PromptSectionConditions, "section_conditions", "conditions",
		"You extract the numbered or titled policy conditions from the CONDITIONS section.")
	registerListSection(PromptSectionExclusions, "section_exclusions", "exclusions",
		"You extract the itemized exclusions from the EXCLUSIONS section of an insurance policy.")
	registerListSection(PromptSectionEndorsements, "section_endorsements", "endorsements",
		"You extract endorsement entries (form numbers, titles, changes) from the ENDORSEMENTS section.")
	registerListSection(PromptSectionDefinitions, "section_definitions", "definitions",
		"You extract defined terms and their definitions from the DEFINITIONS section.")

	RegisterSpec(Spec{
		Name:       PromptSectionInsuringAgreement,
		Version:    1,
		SchemaName: "section_insuring_agreement",
		Schema:     SectionFieldsSchema,
		System: `
You extract the grant of coverage from the INSURING AGREEMENT section of an insurance policy.
Return JSON only.`,
		User: `
Entity types: {{.EntityTypesCSV}}

Section text:
{{.SectionText}}

Return fields with at least: insured_name, carrier_name, coverage_grant_summary,
policy_number. Also return entities and a confidence in [0,1].`,
		Validators: []Validator{
			RequireNonEmpty("SectionText", func(in Input) string { return in.SectionText }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptSectionPremiumSummary,
		Version:    1,
		SchemaName: "section_premium_summary",
		Schema:     SectionFieldsSchema,
		System: `
You extract premium figures from the PREMIUM SUMMARY section of an insurance policy.
Amounts are plain numbers without currency symbols. Return JSON only.`,
		User: `
Entity types: {{.EntityTypesCSV}}

Section text:
{{.SectionText}}

Return fields with at least: total_premium (number), taxes, fees, surcharges,
payment_schedule. Also return entities and a confidence in [0,1].`,
		Validators: []Validator{
			RequireNonEmpty("SectionText", func(in Input) string { return in.SectionText }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptSectionDefault,
		Version:    1,
		SchemaName: "section_default",
		Schema:     SectionFieldsSchema,
		System: `
You extract structured fields from a section of an insurance document.
The section taxonomy did not match this text precisely; extract what is clearly present.
Return JSON only. Never invent values.`,
		User: `
Section type hint: {{.SectionType}}
Entity types: {{.EntityTypesCSV}}

Section text:
{{.SectionText}}

Return fields as a flat object of whatever labeled values appear, plus entities
and a confidence in [0,1].`,
		Validators: []Validator{
			RequireNonEmpty("SectionText", func(in Input) string { return in.SectionText }),
		},
	})

	// ---------- Pass 2 + Tier 3 ----------

	RegisterSpec(Spec{
		Name:       PromptRelationshipExtract,
		Version:    1,
		SchemaName: "relationship_extract",
		Schema:     RelationshipExtractSchema,
		System: `
You link canonical insurance entities with typed relationships using whole-document context.
relation_type MUST come from the closed list. source and target MUST be
"ENTITY_TYPE|normalized_value" strings copied from the entity list. Return JSON only.`,
		User: `
Relation types: {{.RelationTypesCSV}}

Canonical entities (JSON):
{{.EntitiesJSON}}

Document excerpt for context:
{{.DocumentExcerpt}}

Return relationships as {relation_type, source, target, confidence}. Only emit
edges supported by the document; an empty list is a valid answer.`,
		Validators: []Validator{
			RequireNonEmpty("EntitiesJSON", func(in Input) string { return in.EntitiesJSON }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptValidationConflicts,
		Version:    1,
		SchemaName: "validation_conflicts",
		Schema:     ValidationConflictsSchema,
		System: `
You reconcile conflicting values extracted independently from different sections of one insurance document.
Severity is "error" only when the conflict makes the document unusable (e.g. policy number mismatch).
Return JSON only.`,
		User: `
Per-section extracted data (JSON):
{{.SectionDataJSON}}

Rule-based issues already found (JSON):
{{.IssuesJSON}}

Return additional issues and reconciled_values with your confidence per value.`,
		Validators: []Validator{
			RequireNonEmpty("SectionDataJSON", func(in Input) string { return in.SectionDataJSON }),
		},
	})
}

// registerListSection covers the list-shaped sections that differ only in key
// and framing.
func registerListSection(name PromptName, schemaName, key, system string) {
	RegisterSpec(Spec{
		Name:       name,
		Version:    1,
		SchemaName: schemaName,
		Schema:     SectionListSchema(key),
		System:     system + "\nReturn JSON only. Never invent entries.",
		User: `
Entity types: {{.EntityTypesCSV}}

Section text:
{{.SectionText}}

Return ` + key + ` as a list of {title, description, reference}, plus entities
and a confidence in [0,1].`,
		Validators: []Validator{
			RequireNonEmpty("SectionText", func(in Input) string { return in.SectionText }),
		},
	})
}
