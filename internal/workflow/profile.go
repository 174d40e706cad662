package workflow

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/utils"
)

type Registration struct {
	Username string
	Email    string
	Password string
	Role     models.Role
}

// RegisterUser creates a client or freelancer account. Freelancers get an
// empty profile in the same transaction. Admins are provisioned out of band
// through SeedAdmin.
func (e *Engine) RegisterUser(ctx context.Context, r Registration) (*models.User, error) {
	const op = "register_user"
	if r.Role == "" {
		r.Role = models.RoleClient
	}
	if r.Role == models.RoleAdmin {
		return nil, e.fail(op, apperr.New(apperr.CodeNotAuthorized, "admin accounts cannot be self-registered"))
	}
	u, err := e.createUser(ctx, r)
	return u, e.fail(op, err)
}

// SeedAdmin creates an admin account. It is reachable only from the
// operator CLI.
func (e *Engine) SeedAdmin(ctx context.Context, r Registration) (*models.User, error) {
	r.Role = models.RoleAdmin
	u, err := e.createUser(ctx, r)
	return u, e.fail("seed_admin", err)
}

func (e *Engine) createUser(ctx context.Context, r Registration) (*models.User, error) {
	username := strings.TrimSpace(r.Username)
	email := strings.ToLower(strings.TrimSpace(r.Email))

	fe := apperr.FieldErrors{}
	if username == "" {
		fe.Add("username", "username is required")
	} else if len(username) > 80 {
		fe.Add("username", "username is too long")
	}
	if email == "" {
		fe.Add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		fe.Add("email", "email is not valid")
	}
	if len(r.Password) < utils.MinPasswordLen {
		fe.Add("password", "password must be at least 6 characters")
	}
	if !r.Role.Valid() {
		fe.Add("usertype", "usertype must be client or freelancer")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(r.Password)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "hash password")
	}

	u := &models.User{Username: username, Email: email, Password: hash, Role: r.Role, IsActive: true}
	err = e.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			if apperr.IsCode(err, apperr.CodeConflict) {
				return apperr.Wrap(err, apperr.CodeConflict, "email already registered")
			}
			return err
		}
		if u.Role != models.RoleFreelancer {
			return nil
		}
		profile := &models.Freelancer{UserID: u.ID, Skills: []string{}}
		if err := tx.CreateFreelancer(ctx, profile); err != nil {
			return err
		}
		u.Profile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials. Unknown email and wrong password give the
// same error.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	const op = "authenticate"
	u, err := e.store.GetUserByEmail(ctx, email)
	if apperr.IsCode(err, apperr.CodeNotFound) {
		return nil, e.fail(op, apperr.New(apperr.CodeUnauthenticated, "invalid credentials"))
	}
	if err != nil {
		return nil, e.fail(op, err)
	}
	if !u.IsActive || !utils.CheckPassword(u.Password, password) {
		return nil, e.fail(op, apperr.New(apperr.CodeUnauthenticated, "invalid credentials"))
	}
	return u, nil
}

func (e *Engine) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := e.store.GetUser(ctx, id)
	return u, e.fail("get_user", err)
}

// ExternalIdentity is a user vouched for by an external sign-in provider.
type ExternalIdentity struct {
	Email    string
	Username string
}

// UpsertExternalUser returns the account for a verified external identity,
// creating a client account on first sign-in. Such accounts carry a random
// password and can only sign in through the provider.
func (e *Engine) UpsertExternalUser(ctx context.Context, id ExternalIdentity) (*models.User, error) {
	const op = "upsert_external_user"
	u, err := e.store.GetUserByEmail(ctx, id.Email)
	if err == nil {
		return u, nil
	}
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		return nil, e.fail(op, err)
	}
	name := strings.TrimSpace(id.Username)
	if name == "" {
		name = strings.SplitN(id.Email, "@", 2)[0]
	}
	u, err = e.createUser(ctx, Registration{
		Username: name,
		Email:    id.Email,
		Password: uuid.NewString(),
		Role:     models.RoleClient,
	})
	return u, e.fail(op, err)
}

// GetFreelancer returns the profile of a freelancer user.
func (e *Engine) GetFreelancer(ctx context.Context, userID uuid.UUID) (*models.Freelancer, error) {
	f, err := e.store.GetFreelancerByUser(ctx, userID)
	if apperr.IsCode(err, apperr.CodeNotFound) {
		err = apperr.New(apperr.CodeUserNotFound, "freelancer not found")
	}
	return f, e.fail("get_freelancer", err)
}

type ProfileUpdate struct {
	// FreelancerID optionally names the profile; it must be the actor's own.
	FreelancerID *uuid.UUID
	Skills       []string
	Description  string
}

// UpdateFreelancerProfile replaces the skills and description of the
// actor's own profile.
func (e *Engine) UpdateFreelancerProfile(ctx context.Context, actor Actor, in ProfileUpdate) (*models.Freelancer, error) {
	const op = "update_freelancer"
	if err := requireRole(actor, models.RoleFreelancer); err != nil {
		return nil, e.fail(op, err)
	}
	f, err := e.store.GetFreelancerByUser(ctx, actor.ID)
	if err != nil {
		return nil, e.fail(op, err)
	}
	if in.FreelancerID != nil && *in.FreelancerID != f.ID && *in.FreelancerID != actor.ID {
		return nil, e.fail(op, apperr.New(apperr.CodeNotAuthorized, "cannot edit another freelancer's profile"))
	}

	desc := strings.TrimSpace(in.Description)
	if len(desc) > 5000 {
		fe := apperr.FieldErrors{}
		fe.Add("description", "description is too long")
		return nil, e.fail(op, fe.Err())
	}

	f.Skills = NormalizeSkills(in.Skills)
	f.Description = desc
	if err := e.store.SaveFreelancer(ctx, f); err != nil {
		return nil, e.fail(op, err)
	}
	return f, nil
}
