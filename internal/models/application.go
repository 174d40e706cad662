package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is a freelancer's bid on a project. At most one pending
// application may exist per (project, freelancer); the partial unique index
// enforces it at insert time.
type Application struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_one_pending_bid,where:status = 'pending'" json:"project_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_one_pending_bid,where:status = 'pending'" json:"freelancer_id"`

	Budget        int64  `gorm:"not null" json:"budget"`
	EstimatedDays int    `gorm:"not null" json:"time"`
	Proposal      string `gorm:"type:text;not null" json:"proposal"`

	Status      ApplicationStatus `gorm:"type:varchar(20);not null;index;default:'pending'" json:"status"`
	SubmittedAt time.Time         `gorm:"index" json:"submitted_at"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project    *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Freelancer *User    `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
