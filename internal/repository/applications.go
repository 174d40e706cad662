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

// CreateApplication inserts a bid. A second pending bid for the same
// (project, freelancer) trips idx_one_pending_bid and is reported as
// DuplicateBid.
func (s *GormStore) CreateApplication(ctx context.Context, a *models.Application) error {
	err := s.db(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(err, apperr.CodeDuplicateBid, "a pending bid for this project already exists")
	}
	if err != nil {
		return storeErr(err, apperr.CodeApplicationNotFound, "application")
	}
	return nil
}

func (s *GormStore) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var a models.Application
	if err := s.db(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, storeErr(err, apperr.CodeApplicationNotFound, "application")
	}
	return &a, nil
}

func (s *GormStore) HasPendingApplication(ctx context.Context, projectID, freelancerID uuid.UUID) (bool, error) {
	var n int64
	err := s.db(ctx).Model(&models.Application{}).
		Where("project_id = ? AND freelancer_id = ? AND status = ?", projectID, freelancerID, models.ApplicationPending).
		Count(&n).Error
	if err != nil {
		return false, storeErr(err, apperr.CodeApplicationNotFound, "application")
	}
	return n > 0, nil
}

// ResolveApplication moves one application from `from` to `to`. It reports
// CodeAlreadyResolved when the application has left `from` in the meantime.
func (s *GormStore) ResolveApplication(ctx context.Context, id uuid.UUID, from, to models.ApplicationStatus, at time.Time) error {
	res := s.db(ctx).Model(&models.Application{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "resolved_at": at, "updated_at": at})
	if res.Error != nil {
		return storeErr(res.Error, apperr.CodeApplicationNotFound, "application")
	}
	if res.RowsAffected == 0 {
		return apperr.Newf(apperr.CodeAlreadyResolved, "application is no longer %s", from)
	}
	return nil
}

// RejectPending rejects every pending application of a project except
// exceptID (uuid.Nil rejects all) and returns the rows it rejected.
func (s *GormStore) RejectPending(ctx context.Context, projectID, exceptID uuid.UUID, at time.Time) ([]models.Application, error) {
	q := s.db(ctx).Model(&models.Application{}).
		Where("project_id = ? AND status = ?", projectID, models.ApplicationPending)
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}

	var pending []models.Application
	if err := q.Session(&gorm.Session{}).Find(&pending).Error; err != nil {
		return nil, storeErr(err, apperr.CodeApplicationNotFound, "applications")
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(pending))
	for i := range pending {
		ids[i] = pending[i].ID
	}
	err := s.db(ctx).Model(&models.Application{}).
		Where("id IN ? AND status = ?", ids, models.ApplicationPending).
		Updates(map[string]any{"status": models.ApplicationRejected, "resolved_at": at, "updated_at": at}).Error
	if err != nil {
		return nil, storeErr(err, apperr.CodeApplicationNotFound, "applications")
	}
	for i := range pending {
		pending[i].Status = models.ApplicationRejected
		pending[i].ResolvedAt = &at
	}
	return pending, nil
}

// ListApplicationsByProject returns the bids of one project, oldest first,
// with the bidder and the bidder's profile attached.
func (s *GormStore) ListApplicationsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Application, error) {
	var out []models.Application
	err := s.db(ctx).
		Preload("Freelancer").
		Preload("Freelancer.Profile").
		Where("project_id = ?", projectID).
		Order("submitted_at ASC").Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr(err, apperr.CodeApplicationNotFound, "applications")
	}
	return out, nil
}

// ListApplicationsByFreelancer returns one freelancer's bids, newest first,
// with the target project attached.
func (s *GormStore) ListApplicationsByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Application, error) {
	var out []models.Application
	err := s.db(ctx).
		Preload("Project").
		Where("freelancer_id = ?", freelancerID).
		Order("submitted_at DESC").Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr(err, apperr.CodeApplicationNotFound, "applications")
	}
	return out, nil
}

func (s *GormStore) ListApplications(ctx context.Context, f ApplicationFilter) ([]models.Application, error) {
	q := s.db(ctx).Model(&models.Application{}).Preload("Project").Preload("Freelancer")
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.FreelancerID != nil {
		q = q.Where("freelancer_id = ?", *f.FreelancerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.Application
	if err := f.apply(q).Order("submitted_at DESC").Find(&out).Error; err != nil {
		return nil, storeErr(err, apperr.CodeApplicationNotFound, "applications")
	}
	return out, nil
}
