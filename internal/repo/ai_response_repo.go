package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-documind-backend/internal/domain"
)

// CreateAiResponse persists one assistance exchange.
func CreateAiResponse(ctx context.Context, db *gorm.DB, documentID int64, prompt, content, assistanceType string) (*domain.AiAssistanceResponse, error) {
	r := &domain.AiAssistanceResponse{
		DocumentID:      documentID,
		RequestPrompt:   prompt,
		ResponseContent: content,
		AssistanceType:  assistanceType,
		CreatedAt:       nowUTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetAiResponse fetches one response by id, or ErrNotFound.
func GetAiResponse(ctx context.Context, db *gorm.DB, id int64) (*domain.AiAssistanceResponse, error) {
	var r domain.AiAssistanceResponse
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListAiResponses returns documentID's responses newest first.
func ListAiResponses(ctx context.Context, db *gorm.DB, documentID int64) ([]domain.AiAssistanceResponse, error) {
	out := make([]domain.AiAssistanceResponse, 0)
	err := db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}
