package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectState string

const (
	ProjectOpen       ProjectState = "open"
	ProjectAssigned   ProjectState = "assigned"
	ProjectInProgress ProjectState = "in_progress"
	ProjectCompleted  ProjectState = "completed"
	ProjectCancelled  ProjectState = "cancelled"
)

var projectTransitions = map[ProjectState][]ProjectState{
	ProjectOpen:       {ProjectAssigned, ProjectCancelled},
	ProjectAssigned:   {ProjectInProgress, ProjectCancelled},
	ProjectInProgress: {ProjectCompleted},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s ProjectState) CanTransition(next ProjectState) bool {
	for _, allowed := range projectTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ProjectState) Terminal() bool {
	return s == ProjectCompleted || s == ProjectCancelled
}

func (s ProjectState) Valid() bool {
	switch s {
	case ProjectOpen, ProjectAssigned, ProjectInProgress, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

var ProjectStates = []ProjectState{ProjectOpen, ProjectAssigned, ProjectInProgress, ProjectCompleted, ProjectCancelled}

// Project is never physically deleted. ClientName and ClientEmail are a
// snapshot taken at posting time and do not follow later profile edits.
type Project struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string                      `gorm:"type:varchar(200);not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Budget      int64                       `gorm:"not null" json:"budget"`
	Skills      datatypes.JSONSlice[string] `json:"skills"`

	ClientID    uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	ClientName  string    `gorm:"type:varchar(80)" json:"client_name"`
	ClientEmail string    `gorm:"type:varchar(150)" json:"client_email"`

	State                 ProjectState `gorm:"type:varchar(20);not null;index;default:'open'" json:"state"`
	AcceptedApplicationID *uuid.UUID   `gorm:"type:uuid" json:"accepted_application_id,omitempty"`
	AssignedFreelancerID  *uuid.UUID   `gorm:"type:uuid;index" json:"assigned_freelancer_id,omitempty"`
	Version               int          `gorm:"not null;default:1" json:"version"`

	PostedAt  time.Time `gorm:"index" json:"posted_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProjectEvent records one lifecycle transition. The ordered events of a
// project reproduce its current state.
type ProjectEvent struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"project_id"`
	From          ProjectState `gorm:"column:from_state;type:varchar(20)" json:"from"`
	To            ProjectState `gorm:"column:to_state;type:varchar(20);not null" json:"to"`
	Version       int          `gorm:"not null" json:"version"`
	ActorID       uuid.UUID    `gorm:"type:uuid" json:"actor_id"`
	ApplicationID *uuid.UUID   `gorm:"type:uuid" json:"application_id,omitempty"`
	Note          string       `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (e *ProjectEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
