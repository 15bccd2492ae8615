package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DocumentType is the closed set of document classifications.
type DocumentType string

const (
	DocTypePolicy         DocumentType = "policy"
	DocTypeClaim          DocumentType = "claim"
	DocTypeSubmission     DocumentType = "submission"
	DocTypeQuote          DocumentType = "quote"
	DocTypeProposal       DocumentType = "proposal"
	DocTypeSOV            DocumentType = "SOV"
	DocTypeFinancials     DocumentType = "financials"
	DocTypeLossRun        DocumentType = "loss_run"
	DocTypeAudit          DocumentType = "audit"
	DocTypeEndorsement    DocumentType = "endorsement"
	DocTypeInvoice        DocumentType = "invoice"
	DocTypeCorrespondence DocumentType = "correspondence"
)

func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocTypePolicy, DocTypeClaim, DocTypeSubmission, DocTypeQuote,
		DocTypeProposal, DocTypeSOV, DocTypeFinancials, DocTypeLossRun,
		DocTypeAudit, DocTypeEndorsement, DocTypeInvoice, DocTypeCorrespondence,
	}
}

func (d DocumentType) Valid() bool {
	for _, t := range AllDocumentTypes() {
		if d == t {
			return true
		}
	}
	return false
}

// ParseDocumentType maps a free-form label to a DocumentType, ok=false when
// the label is not one of the twelve types.
func ParseDocumentType(raw string) (DocumentType, bool) {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, string(DocTypeSOV)) {
		return DocTypeSOV, true
	}
	d := DocumentType(strings.ToLower(s))
	if d.Valid() {
		return d, true
	}
	return "", false
}

// CompleteScores returns a copy of scores with every document type present
// and each value clamped to [0,1].
func CompleteScores(scores map[DocumentType]float64) map[DocumentType]float64 {
	out := make(map[DocumentType]float64, len(AllDocumentTypes()))
	for _, t := range AllDocumentTypes() {
		v := scores[t]
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[t] = v
	}
	return out
}

const (
	ClassificationMethodAggregate = "aggregate"
	ClassificationMethodFallback  = "fallback"
	ClassificationMethodDefault   = "default"
)

// ClassificationSignal is one chunk's score vector over the document types.
type ClassificationSignal struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_id"`
	ChunkID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"chunk_id"`
	PageNumber int            `gorm:"column:page_number" json:"page_number"`
	Scores     datatypes.JSON `gorm:"type:jsonb;column:scores" json:"scores"`
	Confidence float64        `gorm:"column:confidence" json:"confidence"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ClassificationSignal) TableName() string { return "classification_signal" }

// DocumentClassification is the aggregated document-level decision.
type DocumentClassification struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"document_id"`
	ClassifiedType string         `gorm:"column:classified_type" json:"classified_type"`
	Subtype        string         `gorm:"column:subtype" json:"subtype,omitempty"`
	Confidence     float64        `gorm:"column:confidence" json:"confidence"`
	AllScores      datatypes.JSON `gorm:"type:jsonb;column:all_scores" json:"all_scores"`
	Method         string         `gorm:"column:method" json:"method"`
	Details        datatypes.JSON `gorm:"type:jsonb;column:details" json:"details,omitempty"`
	SectionMap     datatypes.JSON `gorm:"type:jsonb;column:section_map" json:"section_map,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (DocumentClassification) TableName() string { return "document_classification" }
