package docs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
)

type EntityRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entities []*types.Entity) ([]*types.Entity, error)
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.Entity, error)
	DeleteByChunkIDs(ctx context.Context, tx *gorm.DB, chunkIDs []uuid.UUID) error
	DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error
	AssignCanonical(ctx context.Context, tx *gorm.DB, entityIDs []uuid.UUID, canonicalID uuid.UUID) error
}

type entityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntityRepo(db *gorm.DB, baseLog *logger.Logger) EntityRepo {
	return &entityRepo{db: db, log: baseLog.With("repo", "EntityRepo")}
}

func (r *entityRepo) Create(ctx context.Context, tx *gorm.DB, entities []*types.Entity) ([]*types.Entity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entities) == 0 {
		return []*types.Entity{}, nil
	}
	now := time.Now().UTC()
	for _, e := range entities {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now
	}
	if err := transaction.WithContext(ctx).CreateInBatches(entities, 200).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *entityRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.Entity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Entity
	if documentID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("entity_type, normalized_value ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *entityRepo) DeleteByChunkIDs(ctx context.Context, tx *gorm.DB, chunkIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(chunkIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("chunk_id IN ?", chunkIDs).
		Delete(&types.Entity{}).Error
}

func (r *entityRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&types.Entity{}).Error
}

func (r *entityRepo) AssignCanonical(ctx context.Context, tx *gorm.DB, entityIDs []uuid.UUID, canonicalID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entityIDs) == 0 || canonicalID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Entity{}).
		Where("id IN ?", entityIDs).
		Updates(map[string]interface{}{"canonical_id": canonicalID, "updated_at": time.Now().UTC()}).Error
}

type CanonicalEntityRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, rows []*types.CanonicalEntity) error
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.CanonicalEntity, error)
	DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error
}

type canonicalEntityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCanonicalEntityRepo(db *gorm.DB, baseLog *logger.Logger) CanonicalEntityRepo {
	return &canonicalEntityRepo{db: db, log: baseLog.With("repo", "CanonicalEntityRepo")}
}

func (r *canonicalEntityRepo) Upsert(ctx context.Context, tx *gorm.DB, rows []*types.CanonicalEntity) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "document_id"}, {Name: "entity_type"}, {Name: "normalized_value"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_value", "mention_count", "confidence", "updated_at",
			}),
		}).
		Create(rows).Error
}

func (r *canonicalEntityRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.CanonicalEntity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CanonicalEntity
	if documentID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("entity_type, normalized_value ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *canonicalEntityRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&types.CanonicalEntity{}).Error
}

type RelationshipRepo interface {
	Replace(ctx context.Context, tx *gorm.DB, documentID uuid.UUID, rows []*types.EntityRelationship) error
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.EntityRelationship, error)
}

type relationshipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationshipRepo(db *gorm.DB, baseLog *logger.Logger) RelationshipRepo {
	return &relationshipRepo{db: db, log: baseLog.With("repo", "RelationshipRepo")}
}

// Replace swaps the document's relationship set wholesale; the extraction
// pass always produces the complete edge list.
func (r *relationshipRepo) Replace(ctx context.Context, tx *gorm.DB, documentID uuid.UUID, rows []*types.EntityRelationship) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&types.EntityRelationship{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
	}
	return transaction.WithContext(ctx).CreateInBatches(rows, 200).Error
}

func (r *relationshipRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.EntityRelationship, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EntityRelationship
	if documentID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
