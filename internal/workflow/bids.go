package workflow

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
)

type Bid struct {
	ProjectID     uuid.UUID
	Budget        int64
	EstimatedDays int
	Proposal      string
}

// SubmitBid records a pending application. The project row is locked for
// the duration so a bid cannot slip in after an acceptance has committed.
func (e *Engine) SubmitBid(ctx context.Context, actor Actor, in Bid) (*models.Application, error) {
	const op = "submit_bid"
	if err := requireRole(actor, models.RoleFreelancer); err != nil {
		return nil, e.fail(op, err)
	}

	proposal := strings.TrimSpace(in.Proposal)
	fe := apperr.FieldErrors{}
	if in.ProjectID == uuid.Nil {
		fe.Add("projectId", "projectId is required")
	}
	if in.Budget <= 0 {
		fe.Add("budget", "budget must be greater than zero")
	}
	if in.EstimatedDays <= 0 {
		fe.Add("time", "time must be greater than zero")
	}
	if proposal == "" {
		fe.Add("proposal", "proposal is required")
	}
	if err := fe.Err(); err != nil {
		return nil, e.fail(op, err)
	}

	app := &models.Application{
		ProjectID:     in.ProjectID,
		FreelancerID:  actor.ID,
		Budget:        in.Budget,
		EstimatedDays: in.EstimatedDays,
		Proposal:      proposal,
		Status:        models.ApplicationPending,
	}
	err := e.store.InTx(ctx, func(tx repository.Store) error {
		p, err := tx.LockProject(ctx, in.ProjectID)
		if err != nil {
			return err
		}
		if p.State != models.ProjectOpen {
			return apperr.Newf(apperr.CodeProjectNotOpen, "project is %s and no longer takes bids", p.State)
		}
		pending, err := tx.HasPendingApplication(ctx, p.ID, actor.ID)
		if err != nil {
			return err
		}
		if pending {
			return apperr.New(apperr.CodeDuplicateBid, "you already have a pending bid on this project")
		}
		app.SubmittedAt = e.now()
		return tx.CreateApplication(ctx, app)
	})
	if err != nil {
		return nil, e.fail(op, err)
	}
	e.log.Sugar().Infow("bid submitted", "project_id", app.ProjectID, "application_id", app.ID, "freelancer_id", actor.ID)
	return app, nil
}

type Acceptance struct {
	Project     *models.Project
	Application *models.Application
	Rejected    []models.Application
}

// AcceptBid assigns a project to one pending bid. In a single transaction
// the bid becomes accepted, every other pending bid of the project becomes
// rejected and the project moves to assigned. Of two racing acceptances
// exactly one wins; the other gets ApplicationAlreadyResolved.
func (e *Engine) AcceptBid(ctx context.Context, actor Actor, projectID, applicationID uuid.UUID) (*Acceptance, error) {
	const op = "accept_bid"
	if err := requireRole(actor, models.RoleClient); err != nil {
		return nil, e.fail(op, err)
	}

	out := &Acceptance{}
	fx := &effects{}
	err := e.store.InTx(ctx, func(tx repository.Store) error {
		p, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		if err := requireOwner(actor, p); err != nil {
			return err
		}

		app, err := tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.ProjectID != p.ID {
			return apperr.New(apperr.CodeApplicationNotFound, "application not found on this project")
		}

		switch {
		case p.State == models.ProjectOpen && app.Status != models.ApplicationPending:
			return apperr.Newf(apperr.CodeAlreadyResolved, "application was already %s", app.Status)
		case p.State == models.ProjectAssigned:
			return apperr.New(apperr.CodeAlreadyResolved, "another application was already accepted")
		case p.State != models.ProjectOpen:
			return apperr.Newf(apperr.CodeProjectNotOpen, "project is %s", p.State)
		}

		at := e.now()
		if err := tx.ResolveApplication(ctx, app.ID, models.ApplicationPending, models.ApplicationAccepted, at); err != nil {
			return err
		}
		rejected, err := tx.RejectPending(ctx, p.ID, app.ID, at)
		if err != nil {
			return err
		}

		set := map[string]any{
			"accepted_application_id": app.ID,
			"assigned_freelancer_id":  app.FreelancerID,
		}
		err = e.transition(ctx, tx, fx, p, models.ProjectAssigned, actor, &app.ID, "bid accepted", set)
		if apperr.IsCode(err, apperr.CodeConflict) {
			return apperr.Wrap(err, apperr.CodeAlreadyResolved, "project was assigned concurrently")
		}
		if err != nil {
			return err
		}

		appID, freelancerID := app.ID, app.FreelancerID
		p.AcceptedApplicationID = &appID
		p.AssignedFreelancerID = &freelancerID
		app.Status = models.ApplicationAccepted
		app.ResolvedAt = &at

		fx.notify(app.FreelancerID, models.Notification{
			Type:          models.NotifyApplicationAccepted,
			ProjectID:     p.ID,
			ApplicationID: &appID,
			Message:       "Your bid on " + p.Title + " was accepted",
		})
		for _, r := range rejected {
			id := r.ID
			fx.notify(r.FreelancerID, models.Notification{
				Type:          models.NotifyApplicationRejected,
				ProjectID:     p.ID,
				ApplicationID: &id,
				Message:       "Your bid on " + p.Title + " was not selected",
			})
		}

		out.Project, out.Application, out.Rejected = p, app, rejected
		return nil
	})
	if err != nil {
		return nil, e.fail(op, err)
	}
	e.flush(ctx, fx)
	e.log.Sugar().Infow("bid accepted", "project_id", projectID, "application_id", applicationID, "rejected", len(out.Rejected))
	return out, nil
}
