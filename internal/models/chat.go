// internal/models/chat.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is the append-only message log of one project.
type Chat struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"project_id"`

	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Messages []ChatMessage `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

type ChatMessage struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID    uuid.UUID   `gorm:"type:uuid;index;not null" json:"chat_id"`
	ProjectID uuid.UUID   `gorm:"type:uuid;index;not null" json:"project_id"`
	SenderID  uuid.UUID   `gorm:"type:uuid;index" json:"sender_id"`
	Type      MessageType `gorm:"type:varchar(20);default:'text'" json:"type"`
	Body      string      `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time   `gorm:"index" json:"created_at"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
