package prompts

import (
	"strings"

	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
)

func docTypeEnum() map[string]any {
	names := make([]string, 0, len(domain.AllDocumentTypes()))
	for _, t := range domain.AllDocumentTypes() {
		names = append(names, string(t))
	}
	return EnumSchema(names...)
}

func docTypeScoresSchema() map[string]any {
	props := map[string]any{}
	for _, t := range domain.AllDocumentTypes() {
		props[string(t)] = NumberSchema()
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
}

// chunkResultSchema is the per-chunk shape shared by the batch prompt and the
// single-chunk fallback.
func chunkResultSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"chunk_id":        StringSchema(),
		"normalized_text": StringSchema(),
		"section_type":    StringSchema(),
		"entities":        ArraySchema(EntitySchema()),
		"signals":         docTypeScoresSchema(),
		"quality_score":   NumberSchema(),
	}, []string{"chunk_id", "normalized_text"})
}

func BatchNormalizeSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"chunks": ArraySchema(chunkResultSchema()),
	}, []string{"chunks"})
}

func ChunkNormalizeSchema() map[string]any {
	return chunkResultSchema()
}

func ClassifyDocumentSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"document_type":    docTypeEnum(),
		"document_subtype": StringSchema(),
		"confidence":       NumberSchema(),
		"section_boundaries": ArraySchema(ObjectSchema(map[string]any{
			"section_type": StringSchema(),
			"start_page":   IntSchema(),
			"end_page":     IntSchema(),
			"confidence":   NumberSchema(),
		}, []string{"section_type", "start_page"})),
	}, []string{"document_type", "confidence"})
}

func ClassifyFallbackSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"document_type": docTypeEnum(),
		"confidence":    NumberSchema(),
		"reasoning":     StringSchema(),
	}, []string{"document_type"})
}

func SectionFieldsSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"fields":     map[string]any{"type": "object", "additionalProperties": true},
		"entities":   ArraySchema(EntitySchema()),
		"confidence": NumberSchema(),
	}, []string{"fields"})
}

func SectionCoveragesSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"coverages": ArraySchema(ObjectSchema(map[string]any{
			"coverage_type":  StringSchema(),
			"limit":          StringSchema(),
			"deductible":     StringSchema(),
			"premium_amount": NumberSchema(),
		}, []string{"coverage_type"})),
		"entities":   ArraySchema(EntitySchema()),
		"confidence": NumberSchema(),
	}, []string{"coverages"})
}

func SectionListSchema(key string) func() map[string]any {
	return func() map[string]any {
		return ObjectSchema(map[string]any{
			key: ArraySchema(ObjectSchema(map[string]any{
				"title":       StringSchema(),
				"description": StringSchema(),
				"reference":   StringSchema(),
			}, []string{"title"})),
			"entities":   ArraySchema(EntitySchema()),
			"confidence": NumberSchema(),
		}, []string{key})
	}
}

func relationTypeEnum() map[string]any {
	names := make([]string, 0, len(domain.AllRelationTypes()))
	for _, t := range domain.AllRelationTypes() {
		names = append(names, string(t))
	}
	return EnumSchema(names...)
}

func RelationshipExtractSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"relationships": ArraySchema(ObjectSchema(map[string]any{
			"relation_type": relationTypeEnum(),
			"source":        StringSchema(), // "ENTITY_TYPE|normalized_value"
			"target":        StringSchema(),
			"confidence":    NumberSchema(),
		}, []string{"relation_type", "source", "target"})),
	}, []string{"relationships"})
}

func ValidationConflictsSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"issues": ArraySchema(ObjectSchema(map[string]any{
			"issue_type":        StringSchema(),
			"severity":          EnumSchema("error", "warning", "info"),
			"field_name":        StringSchema(),
			"sections_involved": StringArraySchema(),
			"recommended_value": StringSchema(),
			"message":           StringSchema(),
		}, []string{"issue_type", "severity", "field_name"})),
		"reconciled_values": ArraySchema(ObjectSchema(map[string]any{
			"field_name":      StringSchema(),
			"canonical_value": StringSchema(),
			"confidence":      NumberSchema(),
		}, []string{"field_name", "canonical_value"})),
	}, []string{"issues"})
}

// DocTypesCSV and friends feed the closed lists into prompt templates.
func DocTypesCSV() string {
	names := make([]string, 0, len(domain.AllDocumentTypes()))
	for _, t := range domain.AllDocumentTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func SectionTypesCSV() string {
	names := make([]string, 0, len(domain.AllSectionTypes()))
	for _, t := range domain.AllSectionTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func EntityTypesCSV() string {
	names := make([]string, 0, len(domain.AllEntityTypes()))
	for _, t := range domain.AllEntityTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func RelationTypesCSV() string {
	names := make([]string, 0, len(domain.AllRelationTypes()))
	for _, t := range domain.AllRelationTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
