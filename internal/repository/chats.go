package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

const maxMessagePage = 500

// EnsureChat returns the chat of a project, creating it on first use.
func (s *GormStore) EnsureChat(ctx context.Context, projectID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	err := s.db(ctx).Where("project_id = ?", projectID).First(&chat).Error
	if err == nil {
		return &chat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err, apperr.CodeNotFound, "chat")
	}

	chat = models.Chat{ProjectID: projectID}
	err = s.db(ctx).Create(&chat).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// created by a concurrent writer
		err = s.db(ctx).Where("project_id = ?", projectID).First(&chat).Error
	}
	if err != nil {
		return nil, storeErr(err, apperr.CodeNotFound, "chat")
	}
	return &chat, nil
}

// AppendMessage stores m at the end of its project's chat. ChatID and
// CreatedAt are filled in when empty.
func (s *GormStore) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	chat, err := s.EnsureChat(ctx, m.ProjectID)
	if err != nil {
		return err
	}
	m.ChatID = chat.ID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.Type == "" {
		m.Type = models.MessageText
	}
	if err := s.db(ctx).Create(m).Error; err != nil {
		return storeErr(err, apperr.CodeNotFound, "chat message")
	}
	err = s.db(ctx).Model(&models.Chat{}).
		Where("id = ?", chat.ID).
		Updates(map[string]any{"last_message_at": m.CreatedAt, "updated_at": m.CreatedAt}).Error
	if err != nil {
		return storeErr(err, apperr.CodeNotFound, "chat")
	}
	return nil
}

// ListMessages returns messages of a project newer than since, oldest
// first. A zero since returns the whole log, capped at limit.
func (s *GormStore) ListMessages(ctx context.Context, projectID uuid.UUID, since time.Time, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > maxMessagePage {
		limit = maxMessagePage
	}
	q := s.db(ctx).Where("project_id = ?", projectID)
	if !since.IsZero() {
		q = q.Where("created_at > ?", since)
	}
	var out []models.ChatMessage
	if err := q.Order("created_at ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, storeErr(err, apperr.CodeNotFound, "chat messages")
	}
	return out, nil
}
