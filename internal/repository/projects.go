package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

func (s *GormStore) CreateProject(ctx context.Context, p *models.Project) error {
	if err := s.db(ctx).Create(p).Error; err != nil {
		return storeErr(err, apperr.CodeProjectNotFound, "project")
	}
	return nil
}

func (s *GormStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.db(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, storeErr(err, apperr.CodeProjectNotFound, "project")
	}
	return &p, nil
}

// LockProject reads the project with a row lock held until the surrounding
// transaction ends. SQLite has no row locks; its single connection already
// serializes transactions.
func (s *GormStore) LockProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	q := s.db(ctx)
	if s.DB.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p models.Project
	if err := q.First(&p, "id = ?", id).Error; err != nil {
		return nil, storeErr(err, apperr.CodeProjectNotFound, "project")
	}
	return &p, nil
}

// ListProjects returns projects newest first.
func (s *GormStore) ListProjects(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	q := s.db(ctx).Model(&models.Project{})
	if len(f.States) > 0 {
		q = q.Where("state IN ?", f.States)
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	var out []models.Project
	if err := f.apply(q).Order("posted_at DESC").Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, storeErr(err, apperr.CodeProjectNotFound, "projects")
	}
	return out, nil
}

// TransitionProject moves a project from t.From to t.To and bumps its
// version. It returns the new version, or a conflict error when the project
// is no longer in t.From at t.Version.
func (s *GormStore) TransitionProject(ctx context.Context, t ProjectTransition) (int, error) {
	updates := map[string]any{
		"state":      t.To,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	for k, v := range t.Set {
		updates[k] = v
	}

	res := s.db(ctx).Model(&models.Project{}).
		Where("id = ? AND state = ? AND version = ?", t.ProjectID, t.From, t.Version).
		Updates(updates)
	if res.Error != nil {
		return 0, storeErr(res.Error, apperr.CodeProjectNotFound, "project")
	}
	if res.RowsAffected == 0 {
		return 0, apperr.Newf(apperr.CodeConflict, "project changed concurrently, expected %s at version %d", t.From, t.Version)
	}
	return t.Version + 1, nil
}

func (s *GormStore) CountProjectsByState(ctx context.Context) (map[models.ProjectState]int64, error) {
	var rows []struct {
		State models.ProjectState
		Total int64
	}
	err := s.db(ctx).Model(&models.Project{}).
		Select("state, COUNT(*) AS total").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr(err, apperr.CodeProjectNotFound, "projects")
	}

	counts := make(map[models.ProjectState]int64, len(models.ProjectStates))
	for _, st := range models.ProjectStates {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.State] = r.Total
	}
	return counts, nil
}
