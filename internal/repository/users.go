package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.db(ctx).Create(u).Error; err != nil {
		return storeErr(err, apperr.CodeUserNotFound, "user")
	}
	return nil
}

// GetUser loads a user together with the freelancer profile, if any.
func (s *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).Preload("Profile").First(&u, "id = ?", id).Error; err != nil {
		return nil, storeErr(err, apperr.CodeUserNotFound, "user")
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db(ctx).Preload("Profile").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, storeErr(err, apperr.CodeUserNotFound, "user")
	}
	return &u, nil
}

func (s *GormStore) ListUsers(ctx context.Context, f UserFilter) ([]models.User, error) {
	q := s.db(ctx).Model(&models.User{}).Preload("Profile")
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	var users []models.User
	if err := f.apply(q).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, storeErr(err, apperr.CodeUserNotFound, "users")
	}
	return users, nil
}

func (s *GormStore) CreateFreelancer(ctx context.Context, f *models.Freelancer) error {
	if err := s.db(ctx).Create(f).Error; err != nil {
		return storeErr(err, apperr.CodeNotFound, "freelancer profile")
	}
	return nil
}

func (s *GormStore) GetFreelancerByUser(ctx context.Context, userID uuid.UUID) (*models.Freelancer, error) {
	var f models.Freelancer
	if err := s.db(ctx).Where("user_id = ?", userID).First(&f).Error; err != nil {
		return nil, storeErr(err, apperr.CodeNotFound, "freelancer profile")
	}
	return &f, nil
}

func (s *GormStore) SaveFreelancer(ctx context.Context, f *models.Freelancer) error {
	if err := s.db(ctx).Save(f).Error; err != nil {
		return storeErr(err, apperr.CodeNotFound, "freelancer profile")
	}
	return nil
}
