package domain

import (
	"crypto/sha256"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType is the fixed entity ontology.
type EntityType string

const (
	EntityPolicyNumber  EntityType = "POLICY_NUMBER"
	EntityClaimNumber   EntityType = "CLAIM_NUMBER"
	EntityInsuredName   EntityType = "INSURED_NAME"
	EntityAddress       EntityType = "ADDRESS"
	EntityCoverageType  EntityType = "COVERAGE_TYPE"
	EntityLimit         EntityType = "LIMIT"
	EntityDeductible    EntityType = "DEDUCTIBLE"
	EntityEffectiveDate EntityType = "EFFECTIVE_DATE"
	EntityExpiryDate    EntityType = "EXPIRY_DATE"
	EntityCarrier       EntityType = "CARRIER"
	EntityBroker        EntityType = "BROKER"
	EntityPremium       EntityType = "PREMIUM"
	EntityLocation      EntityType = "LOCATION"
)

func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityPolicyNumber, EntityClaimNumber, EntityInsuredName, EntityAddress,
		EntityCoverageType, EntityLimit, EntityDeductible, EntityEffectiveDate,
		EntityExpiryDate, EntityCarrier, EntityBroker, EntityPremium, EntityLocation,
	}
}

func (e EntityType) Valid() bool {
	for _, t := range AllEntityTypes() {
		if e == t {
			return true
		}
	}
	return false
}

func ParseEntityType(raw string) (EntityType, bool) {
	e := EntityType(strings.ToUpper(strings.TrimSpace(raw)))
	if e.Valid() {
		return e, true
	}
	return "", false
}

// RelationType is the fixed relationship ontology between canonical entities.
type RelationType string

const (
	RelHasInsured    RelationType = "HAS_INSURED"
	RelHasCoverage   RelationType = "HAS_COVERAGE"
	RelHasLimit      RelationType = "HAS_LIMIT"
	RelHasDeductible RelationType = "HAS_DEDUCTIBLE"
	RelHasClaim      RelationType = "HAS_CLAIM"
	RelLocatedAt     RelationType = "LOCATED_AT"
	RelEffectiveFrom RelationType = "EFFECTIVE_FROM"
	RelExpiresOn     RelationType = "EXPIRES_ON"
	RelIssuedBy      RelationType = "ISSUED_BY"
	RelBrokeredBy    RelationType = "BROKERED_BY"
)

func AllRelationTypes() []RelationType {
	return []RelationType{
		RelHasInsured, RelHasCoverage, RelHasLimit, RelHasDeductible, RelHasClaim,
		RelLocatedAt, RelEffectiveFrom, RelExpiresOn, RelIssuedBy, RelBrokeredBy,
	}
}

func (r RelationType) Valid() bool {
	for _, t := range AllRelationTypes() {
		if r == t {
			return true
		}
	}
	return false
}

func ParseRelationType(raw string) (RelationType, bool) {
	r := RelationType(strings.ToUpper(strings.TrimSpace(raw)))
	if r.Valid() {
		return r, true
	}
	return "", false
}

// Entity is a chunk-scoped mention.
type Entity struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"document_id"`
	ChunkID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"chunk_id"`
	EntityType      string     `gorm:"column:entity_type;not null;index" json:"entity_type"`
	RawValue        string     `gorm:"column:raw_value;not null" json:"raw_value"`
	NormalizedValue string     `gorm:"column:normalized_value;index" json:"normalized_value"`
	Confidence      float64    `gorm:"column:confidence" json:"confidence"`
	SpanStart       int        `gorm:"column:span_start" json:"span_start"`
	SpanEnd         int        `gorm:"column:span_end" json:"span_end"`
	CanonicalID     *uuid.UUID `gorm:"type:uuid;column:canonical_id;index" json:"canonical_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Entity) TableName() string { return "chunk_entity" }

// CanonicalEntity is the document-wide resolved identity for all mentions
// sharing (entity_type, normalized_value).
type CanonicalEntity struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID      uuid.UUID `gorm:"type:uuid;not null;index:idx_canonical_doc_type_value,unique" json:"document_id"`
	EntityType      string    `gorm:"column:entity_type;not null;index:idx_canonical_doc_type_value,unique" json:"entity_type"`
	NormalizedValue string    `gorm:"column:normalized_value;not null;index:idx_canonical_doc_type_value,unique" json:"normalized_value"`
	DisplayValue    string    `gorm:"column:display_value" json:"display_value"`
	MentionCount    int       `gorm:"column:mention_count" json:"mention_count"`
	Confidence      float64   `gorm:"column:confidence" json:"confidence"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CanonicalEntity) TableName() string { return "canonical_entity" }

// CanonicalEntityID derives the canonical identity for a (type, value) pair
// within a document.
func CanonicalEntityID(documentID uuid.UUID, entityType EntityType, normalizedValue string) uuid.UUID {
	key := "canonical|" + documentID.String() + "|" + string(entityType) + "|" + strings.ToLower(strings.TrimSpace(normalizedValue))
	h := sha256.Sum256([]byte(key))
	id, err := uuid.FromBytes(h[:16])
	if err != nil {
		return uuid.New()
	}
	return id
}

// EntityRelationship is a typed edge between two canonical entities.
type EntityRelationship struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID   uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	RelationType string    `gorm:"column:relation_type;not null" json:"relation_type"`
	SourceID     uuid.UUID `gorm:"type:uuid;column:source_id;not null" json:"source_id"`
	TargetID     uuid.UUID `gorm:"type:uuid;column:target_id;not null" json:"target_id"`
	Confidence   float64   `gorm:"column:confidence" json:"confidence"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (EntityRelationship) TableName() string { return "entity_relationship" }
