package docpipeline

import (
	"github.com/google/uuid"

	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/validation"
)

const (
	WorkflowName = "document-extraction"

	ActivityProcessPages      = "ProcessPages"
	ActivityClassifyAggregate = "ClassifyAggregate"
	ActivityClassifyTier1     = "ClassifyTier1"
	ActivityExtractSections   = "ExtractSections"
	ActivityResolveEntities   = "ResolveEntities"
	ActivityValidateDocument  = "ValidateDocument"
)

// ExtractionRequest starts one document through the pipeline. Pages come
// from the OCR provider; the workflow never re-runs OCR.
type ExtractionRequest struct {
	DocumentID uuid.UUID         `json:"document_id"`
	Pages      []domain.PageData `json:"pages"`
}

// ProcessPagesOutput summarizes the chunk + normalize + signal stage.
// Full rows live in the database; activities return counts only so
// workflow histories stay small.
type ProcessPagesOutput struct {
	ChunkCount      int         `json:"chunk_count"`
	NormalizedCount int         `json:"normalized_count"`
	EntityCount     int         `json:"entity_count"`
	DroppedChunkIDs []uuid.UUID `json:"dropped_chunk_ids,omitempty"`
}

type ClassifyOutput struct {
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"confidence"`
	Method       string  `json:"method"`
}

type Tier1Output struct {
	DocumentType    string         `json:"document_type"`
	Confidence      float64        `json:"confidence"`
	SectionatedMap  map[int]string `json:"page_section_map,omitempty"`
	BoundaryCount   int            `json:"boundary_count"`
	RelabeledChunks int            `json:"relabeled_chunks"`
}

type ExtractOutput struct {
	Sections    int `json:"sections"`
	Entities    int `json:"entities"`
	TotalTokens int `json:"total_tokens"`
}

type ResolveOutput struct {
	CanonicalEntities int `json:"canonical_entities"`
	Relationships     int `json:"relationships"`
}

// ValidateOutput carries the full Tier 3 result; it is the workflow's final
// answer and also persisted onto the document's report.
type ValidateOutput struct {
	Result validation.Result `json:"result"`
}
