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

type SectionResultRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, rows []*types.SectionExtractionRow) error
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.SectionExtractionRow, error)
	DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error
}

type sectionResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionResultRepo(db *gorm.DB, baseLog *logger.Logger) SectionResultRepo {
	return &sectionResultRepo{db: db, log: baseLog.With("repo", "SectionResultRepo")}
}

func (r *sectionResultRepo) Upsert(ctx context.Context, tx *gorm.DB, rows []*types.SectionExtractionRow) error {
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
			Columns: []clause.Column{{Name: "document_id"}, {Name: "section_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"extracted_data", "entities", "confidence", "tokens_used",
				"processing_ms", "updated_at",
			}),
		}).
		Create(rows).Error
}

func (r *sectionResultRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.SectionExtractionRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SectionExtractionRow
	if documentID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("section_type ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sectionResultRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&types.SectionExtractionRow{}).Error
}
