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

type SignalRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, signals []*types.ClassificationSignal) error
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.ClassificationSignal, error)
	DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error
}

type signalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSignalRepo(db *gorm.DB, baseLog *logger.Logger) SignalRepo {
	return &signalRepo{db: db, log: baseLog.With("repo", "SignalRepo")}
}

func (r *signalRepo) Upsert(ctx context.Context, tx *gorm.DB, signals []*types.ClassificationSignal) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(signals) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, s := range signals {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chunk_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"scores", "confidence", "page_number", "updated_at"}),
		}).
		Create(signals).Error
}

func (r *signalRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.ClassificationSignal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ClassificationSignal
	if documentID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("page_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *signalRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&types.ClassificationSignal{}).Error
}

type ClassificationRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, row *types.DocumentClassification) error
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.DocumentClassification, error)
}

type classificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClassificationRepo(db *gorm.DB, baseLog *logger.Logger) ClassificationRepo {
	return &classificationRepo{db: db, log: baseLog.With("repo", "ClassificationRepo")}
}

func (r *classificationRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.DocumentClassification) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "document_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"classified_type", "subtype", "confidence", "all_scores",
				"method", "details", "section_map", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *classificationRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.DocumentClassification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.DocumentClassification
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
