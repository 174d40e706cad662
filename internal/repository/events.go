package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

func (s *GormStore) AppendEvent(ctx context.Context, e *models.ProjectEvent) error {
	if err := s.db(ctx).Create(e).Error; err != nil {
		return storeErr(err, apperr.CodeProjectNotFound, "project event")
	}
	return nil
}

// ListEvents returns the transition history of a project in the order it
// happened.
func (s *GormStore) ListEvents(ctx context.Context, projectID uuid.UUID) ([]models.ProjectEvent, error) {
	var out []models.ProjectEvent
	err := s.db(ctx).
		Where("project_id = ?", projectID).
		Order("version ASC").Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr(err, apperr.CodeProjectNotFound, "project events")
	}
	return out, nil
}
