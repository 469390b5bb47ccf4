package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docchat/internal/model"
)

type EmbeddingRepository struct {
	db *gorm.DB
}

func NewEmbeddingRepository(db *gorm.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// Upsert inserts or replaces the record for its document id. Re-indexing the
// same document overwrites, never duplicates.
func (r *EmbeddingRepository) Upsert(record *model.EmbeddingRecord) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"embedding", "excerpt", "created_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("upsert embedding record failed: %w", err)
	}
	return nil
}

func (r *EmbeddingRepository) ListAll() ([]model.EmbeddingRecord, error) {
	var records []model.EmbeddingRecord
	if err := r.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list embedding records failed: %w", err)
	}
	return records, nil
}

func (r *EmbeddingRepository) DeleteByDocumentID(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.EmbeddingRecord{}).Error; err != nil {
		return fmt.Errorf("delete embedding record failed: %w", err)
	}
	return nil
}
