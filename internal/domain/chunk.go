package domain

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Chunk is a contiguous span of page text. Its ID is deterministic in
// (document_id, page_number, chunk_index) so reprocessing a document
// regenerates identical IDs and delete-and-recreate stays idempotent.
type Chunk struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_id"`
	PageNumber int            `gorm:"column:page_number;not null;index" json:"page_number"`
	PageEnd    *int           `gorm:"column:page_end" json:"page_end,omitempty"`
	ChunkIndex int            `gorm:"column:chunk_index;not null" json:"chunk_index"`
	SectionType string        `gorm:"column:section_type;index" json:"section_type"`
	Text       string         `gorm:"column:text;type:text;not null" json:"text"`
	TokenCount int            `gorm:"column:token_count" json:"token_count"`
	Metadata   datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Chunk) TableName() string { return "document_chunk" }

// StableChunkID derives the chunk identity from its coordinates.
func StableChunkID(documentID uuid.UUID, pageNumber, chunkIndex int) uuid.UUID {
	h := sha256.Sum256([]byte(fmt.Sprintf("chunk|%s|%d|%d", documentID.String(), pageNumber, chunkIndex)))
	id, err := uuid.FromBytes(h[:16])
	if err != nil {
		return uuid.New()
	}
	return id
}

// NormalizedChunk holds the cleaned text and per-chunk extraction output for
// one Chunk. At most one row exists per chunk.
type NormalizedChunk struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ChunkID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"chunk_id"`
	DocumentID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_id"`
	NormalizedText string         `gorm:"column:normalized_text;type:text" json:"normalized_text"`
	ContentHash    string         `gorm:"column:content_hash;index" json:"content_hash"`
	Fields         datatypes.JSON `gorm:"type:jsonb;column:fields" json:"fields,omitempty"`
	Entities       datatypes.JSON `gorm:"type:jsonb;column:entities" json:"entities,omitempty"`
	ModelVersion   string         `gorm:"column:model_version" json:"model_version,omitempty"`
	PromptVersion  int            `gorm:"column:prompt_version" json:"prompt_version,omitempty"`
	QualityScore   float64        `gorm:"column:quality_score" json:"quality_score"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (NormalizedChunk) TableName() string { return "normalized_chunk" }
