package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SectionExtractionRow persists the output of extracting one section
// super-chunk. One row per (document, section_type) per run.
type SectionExtractionRow struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_section_extract_doc_type,unique" json:"document_id"`
	SectionType   string         `gorm:"column:section_type;not null;index:idx_section_extract_doc_type,unique" json:"section_type"`
	ExtractedData datatypes.JSON `gorm:"type:jsonb;column:extracted_data" json:"extracted_data"`
	Entities      datatypes.JSON `gorm:"type:jsonb;column:entities" json:"entities,omitempty"`
	Confidence    float64        `gorm:"column:confidence" json:"confidence"`
	TokensUsed    int            `gorm:"column:tokens_used" json:"tokens_used"`
	ProcessingMS  int64          `gorm:"column:processing_ms" json:"processing_ms"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (SectionExtractionRow) TableName() string { return "section_extraction_result" }
