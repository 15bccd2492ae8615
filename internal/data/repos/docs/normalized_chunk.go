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

type NormalizedChunkRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, rows []*types.NormalizedChunk) error
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.NormalizedChunk, error)
	GetByChunkIDs(ctx context.Context, tx *gorm.DB, chunkIDs []uuid.UUID) ([]*types.NormalizedChunk, error)
	DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error
}

type normalizedChunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNormalizedChunkRepo(db *gorm.DB, baseLog *logger.Logger) NormalizedChunkRepo {
	return &normalizedChunkRepo{db: db, log: baseLog.With("repo", "NormalizedChunkRepo")}
}

// Upsert keeps the one-row-per-chunk invariant: conflicts on chunk_id update
// the normalized payload in place.
func (r *normalizedChunkRepo) Upsert(ctx context.Context, tx *gorm.DB, rows []*types.NormalizedChunk) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
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
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "chunk_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"normalized_text", "content_hash", "fields", "entities",
				"model_version", "prompt_version", "quality_score", "updated_at",
			}),
		}).
		Create(rows).Error
}

func (r *normalizedChunkRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.NormalizedChunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.NormalizedChunk
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

func (r *normalizedChunkRepo) GetByChunkIDs(ctx context.Context, tx *gorm.DB, chunkIDs []uuid.UUID) ([]*types.NormalizedChunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.NormalizedChunk
	if len(chunkIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("chunk_id IN ?", chunkIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *normalizedChunkRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&types.NormalizedChunk{}).Error
}
