package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docchat/internal/model"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(conversation *model.Conversation) error {
	if err := r.db.Create(conversation).Error; err != nil {
		return fmt.Errorf("create conversation failed: %w", err)
	}
	return nil
}

func (r *ConversationRepository) GetByID(id uint) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.First(&conversation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query conversation failed: %w", err)
	}
	return &conversation, nil
}

func (r *ConversationRepository) GetByDocumentID(documentID uint) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.Where("document_id = ?", documentID).First(&conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query conversation by document failed: %w", err)
	}
	return &conversation, nil
}

func (r *ConversationRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.Conversation{}, id).Error; err != nil {
		return fmt.Errorf("delete conversation failed: %w", err)
	}
	return nil
}
