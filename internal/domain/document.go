package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Document struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FileName     string    `gorm:"column:file_name" json:"file_name"`
	Status       string    `gorm:"column:status;index" json:"status"`
	PageCount    int       `gorm:"column:page_count" json:"page_count"`
	OCRProvider  string    `gorm:"column:ocr_provider" json:"ocr_provider,omitempty"`
	PagesJSON    datatypes.JSON `gorm:"type:jsonb;column:pages_json" json:"pages_json,omitempty"`
	MergedText   string         `gorm:"column:merged_text;type:text" json:"merged_text,omitempty"`
	ReportJSON   datatypes.JSON `gorm:"type:jsonb;column:report_json" json:"report_json,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "insurance_document" }
