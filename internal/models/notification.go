package models

import "github.com/google/uuid"

type NotificationType string

const (
	NotifyApplicationAccepted NotificationType = "application_accepted"
	NotifyApplicationRejected NotificationType = "application_rejected"
	NotifyProjectCancelled    NotificationType = "project_cancelled"
	NotifyWorkStarted         NotificationType = "work_started"
	NotifyProjectCompleted    NotificationType = "project_completed"
)

// Notification is pushed to a single user; it is not persisted.
type Notification struct {
	Type          NotificationType `json:"type"`
	ProjectID     uuid.UUID        `json:"project_id"`
	ApplicationID *uuid.UUID       `json:"application_id,omitempty"`
	Message       string           `json:"message"`
}
