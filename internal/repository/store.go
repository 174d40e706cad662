// Package repository is the persistence store. It holds no business rules:
// every method is plain CRUD or a conditional update whose precondition is
// supplied by the caller.
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

// Store is what the workflow engine depends on.
type Store interface {
	// InTx runs fn in one transaction. Any error rolls back every write made
	// through the Store passed to fn.
	InTx(ctx context.Context, fn func(tx Store) error) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]models.User, error)

	CreateFreelancer(ctx context.Context, f *models.Freelancer) error
	GetFreelancerByUser(ctx context.Context, userID uuid.UUID) (*models.Freelancer, error)
	SaveFreelancer(ctx context.Context, f *models.Freelancer) error

	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	LockProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, f ProjectFilter) ([]models.Project, error)
	TransitionProject(ctx context.Context, t ProjectTransition) (int, error)
	CountProjectsByState(ctx context.Context) (map[models.ProjectState]int64, error)

	CreateApplication(ctx context.Context, a *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	HasPendingApplication(ctx context.Context, projectID, freelancerID uuid.UUID) (bool, error)
	ResolveApplication(ctx context.Context, id uuid.UUID, from, to models.ApplicationStatus, at time.Time) error
	RejectPending(ctx context.Context, projectID, exceptID uuid.UUID, at time.Time) ([]models.Application, error)
	ListApplicationsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Application, error)
	ListApplicationsByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Application, error)
	ListApplications(ctx context.Context, f ApplicationFilter) ([]models.Application, error)

	AppendEvent(ctx context.Context, e *models.ProjectEvent) error
	ListEvents(ctx context.Context, projectID uuid.UUID) ([]models.ProjectEvent, error)

	EnsureChat(ctx context.Context, projectID uuid.UUID) (*models.Chat, error)
	AppendMessage(ctx context.Context, m *models.ChatMessage) error
	ListMessages(ctx context.Context, projectID uuid.UUID, since time.Time, limit int) ([]models.ChatMessage, error)
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}

type UserFilter struct {
	Role models.Role
	Page
}

type ProjectFilter struct {
	States   []models.ProjectState
	ClientID *uuid.UUID
	Page
}

type ApplicationFilter struct {
	ProjectID    *uuid.UUID
	FreelancerID *uuid.UUID
	Status       models.ApplicationStatus
	Page
}

// ProjectTransition is a conditional update: it applies only while the
// project is still in From at Version.
type ProjectTransition struct {
	ProjectID uuid.UUID
	From      models.ProjectState
	To        models.ProjectState
	Version   int
	Set       map[string]any
}

// GormStore implements Store on gorm. The zero value is not usable.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

func (s *GormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
	if err == nil {
		return nil
	}
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(err, apperr.CodeStoreUnavailable, "transaction failed")
}

// storeErr maps gorm errors onto stable kinds. notFound is the code used
// when the record is missing.
func storeErr(err error, notFound apperr.Code, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.New(notFound, what+" not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(err, apperr.CodeConflict, what+" already exists")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, what+" request aborted")
	default:
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, what+" store failure")
	}
}
