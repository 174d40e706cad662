package workflow

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
)

type NewProject struct {
	Title       string
	Description string
	Budget      int64
	Skills      []string
	// ClientID is accepted from legacy payloads and must match the actor.
	ClientID *uuid.UUID
}

// CreateProject posts a project in state open. The client's name and email
// are copied from the account at this moment and are not kept in sync.
func (e *Engine) CreateProject(ctx context.Context, actor Actor, in NewProject) (*models.Project, error) {
	const op = "create_project"
	if err := requireRole(actor, models.RoleClient); err != nil {
		return nil, e.fail(op, err)
	}
	if in.ClientID != nil && *in.ClientID != actor.ID {
		return nil, e.fail(op, apperr.New(apperr.CodeNotAuthorized, "cannot post a project on behalf of another client"))
	}

	title := strings.TrimSpace(in.Title)
	fe := apperr.FieldErrors{}
	if title == "" {
		fe.Add("title", "title is required")
	} else if len(title) > 200 {
		fe.Add("title", "title is too long")
	}
	if strings.TrimSpace(in.Description) == "" {
		fe.Add("description", "description is required")
	}
	if in.Budget <= 0 {
		fe.Add("budget", "budget must be greater than zero")
	}
	if err := fe.Err(); err != nil {
		return nil, e.fail(op, err)
	}

	client, err := e.store.GetUser(ctx, actor.ID)
	if err != nil {
		return nil, e.fail(op, err)
	}

	now := e.now()
	p := &models.Project{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Budget:      in.Budget,
		Skills:      NormalizeSkills(in.Skills),
		ClientID:    client.ID,
		ClientName:  client.Username,
		ClientEmail: client.Email,
		State:       models.ProjectOpen,
		Version:     1,
		PostedAt:    now,
	}
	err = e.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateProject(ctx, p); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, &models.ProjectEvent{
			ProjectID: p.ID,
			To:        models.ProjectOpen,
			Version:   1,
			ActorID:   actor.ID,
			Note:      "posted",
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, e.fail(op, err)
	}
	e.log.Sugar().Infow("project posted", "project_id", p.ID, "client_id", p.ClientID)
	return p, nil
}

func (e *Engine) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := e.store.GetProject(ctx, id)
	return p, e.fail("get_project", err)
}

// ListProjects returns every project, newest first.
func (e *Engine) ListProjects(ctx context.Context, page repository.Page) ([]models.Project, error) {
	out, err := e.store.ListProjects(ctx, repository.ProjectFilter{Page: page})
	return out, e.fail("list_projects", err)
}

// StartWork moves an assigned project into progress. Only the assigned
// freelancer may call it.
func (e *Engine) StartWork(ctx context.Context, actor Actor, projectID uuid.UUID) (*models.Project, error) {
	const op = "start_work"
	if err := requireRole(actor, models.RoleFreelancer); err != nil {
		return nil, e.fail(op, err)
	}

	var p *models.Project
	fx := &effects{}
	err := e.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		if p, err = tx.LockProject(ctx, projectID); err != nil {
			return err
		}
		if err := requireAssigned(actor, p); err != nil {
			return err
		}
		if p.State != models.ProjectAssigned {
			return apperr.Newf(apperr.CodeInvalidTransition, "cannot start work on a project that is %s", p.State)
		}
		if err := e.transition(ctx, tx, fx, p, models.ProjectInProgress, actor, p.AcceptedApplicationID, "work started", nil); err != nil {
			return err
		}
		fx.notify(p.ClientID, models.Notification{
			Type:      models.NotifyWorkStarted,
			ProjectID: p.ID,
			Message:   "Work has started on " + p.Title,
		})
		return nil
	})
	if err != nil {
		return nil, e.fail(op, err)
	}
	e.flush(ctx, fx)
	return p, nil
}

// CompleteProject marks deliverables accepted. Only the owning client may
// call it.
func (e *Engine) CompleteProject(ctx context.Context, actor Actor, projectID uuid.UUID) (*models.Project, error) {
	const op = "complete_project"
	if err := requireRole(actor, models.RoleClient); err != nil {
		return nil, e.fail(op, err)
	}

	var p *models.Project
	fx := &effects{}
	err := e.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		if p, err = tx.LockProject(ctx, projectID); err != nil {
			return err
		}
		if err := requireOwner(actor, p); err != nil {
			return err
		}
		if p.State != models.ProjectInProgress {
			return apperr.Newf(apperr.CodeInvalidTransition, "cannot complete a project that is %s", p.State)
		}
		if err := e.transition(ctx, tx, fx, p, models.ProjectCompleted, actor, p.AcceptedApplicationID, "deliverables accepted", nil); err != nil {
			return err
		}
		if p.AssignedFreelancerID != nil {
			fx.notify(*p.AssignedFreelancerID, models.Notification{
				Type:      models.NotifyProjectCompleted,
				ProjectID: p.ID,
				Message:   p.Title + " was marked completed",
			})
		}
		return nil
	})
	if err != nil {
		return nil, e.fail(op, err)
	}
	e.flush(ctx, fx)
	return p, nil
}

// CancelResult reports whether the call cancelled the project or found it
// already cancelled.
type CancelResult struct {
	Project          *models.Project
	AlreadyCancelled bool
}

// CancelProject cancels an open or assigned project. The owning client or an
// admin may call it. Cancelling a cancelled project is a no-op.
func (e *Engine) CancelProject(ctx context.Context, actor Actor, projectID uuid.UUID, reason string) (*CancelResult, error) {
	const op = "cancel_project"
	if err := requireRole(actor, models.RoleClient, models.RoleAdmin); err != nil {
		return nil, e.fail(op, err)
	}

	res := &CancelResult{}
	fx := &effects{}
	err := e.store.InTx(ctx, func(tx repository.Store) error {
		p, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		res.Project = p
		if err := requireOwnerOrAdmin(actor, p); err != nil {
			return err
		}
		if p.State == models.ProjectCancelled {
			res.AlreadyCancelled = true
			return nil
		}
		if !p.State.CanTransition(models.ProjectCancelled) {
			return apperr.Newf(apperr.CodeInvalidTransition, "cannot cancel a project that is %s", p.State)
		}

		at := e.now()
		from := p.State
		acceptedID := p.AcceptedApplicationID
		assigned := p.AssignedFreelancerID

		switch from {
		case models.ProjectOpen:
			rejected, err := tx.RejectPending(ctx, p.ID, uuid.Nil, at)
			if err != nil {
				return err
			}
			for _, a := range rejected {
				id := a.ID
				fx.notify(a.FreelancerID, models.Notification{
					Type:          models.NotifyApplicationRejected,
					ProjectID:     p.ID,
					ApplicationID: &id,
					Message:       "The project " + p.Title + " was cancelled",
				})
			}
		case models.ProjectAssigned:
			if acceptedID != nil {
				err := tx.ResolveApplication(ctx, *acceptedID, models.ApplicationAccepted, models.ApplicationRejected, at)
				if err != nil && !apperr.IsCode(err, apperr.CodeAlreadyResolved) {
					return err
				}
			}
		}

		note := "cancelled"
		if r := strings.TrimSpace(reason); r != "" {
			note += " (" + r + ")"
		}
		set := map[string]any{"accepted_application_id": nil, "assigned_freelancer_id": nil}
		if err := e.transition(ctx, tx, fx, p, models.ProjectCancelled, actor, acceptedID, note, set); err != nil {
			return err
		}
		p.AcceptedApplicationID = nil
		p.AssignedFreelancerID = nil

		if assigned != nil {
			fx.notify(*assigned, models.Notification{
				Type:          models.NotifyProjectCancelled,
				ProjectID:     p.ID,
				ApplicationID: acceptedID,
				Message:       "The project " + p.Title + " was cancelled",
			})
		}
		return nil
	})
	if err != nil {
		return nil, e.fail(op, err)
	}
	e.flush(ctx, fx)
	return res, nil
}

// ProjectHistory returns the ordered lifecycle events of a project. The
// owner, the assigned freelancer and admins may read it.
func (e *Engine) ProjectHistory(ctx context.Context, actor Actor, projectID uuid.UUID) ([]models.ProjectEvent, error) {
	const op = "project_history"
	if err := requireActor(actor); err != nil {
		return nil, e.fail(op, err)
	}
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, e.fail(op, err)
	}
	if !isParticipant(actor, p) {
		return nil, e.fail(op, apperr.New(apperr.CodeNotAuthorized, "not a participant of this project"))
	}
	events, err := e.store.ListEvents(ctx, projectID)
	return events, e.fail(op, err)
}
