package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
)

type FreelancerSummary struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Skills      []string  `json:"skills"`
	Description string    `json:"description"`
}

// ProjectApplication is a bid as its project's owner sees it.
type ProjectApplication struct {
	models.Application
	Bidder FreelancerSummary `json:"bidder"`
}

// ApplicationsByProject lists the bids of a project, oldest first. Only the
// owning client and admins may read them.
func (e *Engine) ApplicationsByProject(ctx context.Context, actor Actor, projectID uuid.UUID) ([]ProjectApplication, error) {
	const op = "applications_by_project"
	if err := requireRole(actor, models.RoleClient, models.RoleAdmin); err != nil {
		return nil, e.fail(op, err)
	}
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, e.fail(op, err)
	}
	if err := requireOwnerOrAdmin(actor, p); err != nil {
		return nil, e.fail(op, err)
	}

	apps, err := e.store.ListApplicationsByProject(ctx, projectID)
	if err != nil {
		return nil, e.fail(op, err)
	}
	out := make([]ProjectApplication, 0, len(apps))
	for _, a := range apps {
		pa := ProjectApplication{Bidder: FreelancerSummary{UserID: a.FreelancerID, Skills: []string{}}}
		if u := a.Freelancer; u != nil {
			pa.Bidder.Username = u.Username
			pa.Bidder.Email = u.Email
			if u.Profile != nil {
				pa.Bidder.Skills = append(pa.Bidder.Skills, u.Profile.Skills...)
				pa.Bidder.Description = u.Profile.Description
			}
		}
		a.Freelancer = nil
		pa.Application = a
		out = append(out, pa)
	}
	return out, nil
}

// FreelancerApplication is a bid annotated with the current state of the
// project it targets.
type FreelancerApplication struct {
	models.Application
	ProjectTitle string              `json:"project_title"`
	ProjectState models.ProjectState `json:"project_state"`
	// Live is true while the bid can still be accepted.
	Live bool `json:"live"`
}

// ApplicationsByFreelancer lists a freelancer's bids, newest first. A
// freelancer may read only their own; admins may read anyone's.
func (e *Engine) ApplicationsByFreelancer(ctx context.Context, actor Actor, freelancerID uuid.UUID) ([]FreelancerApplication, error) {
	const op = "applications_by_freelancer"
	if err := requireRole(actor, models.RoleFreelancer, models.RoleAdmin); err != nil {
		return nil, e.fail(op, err)
	}
	if actor.Role == models.RoleFreelancer && freelancerID != actor.ID {
		return nil, e.fail(op, apperr.New(apperr.CodeNotAuthorized, "cannot read another freelancer's bids"))
	}

	apps, err := e.store.ListApplicationsByFreelancer(ctx, freelancerID)
	if err != nil {
		return nil, e.fail(op, err)
	}
	out := make([]FreelancerApplication, 0, len(apps))
	for _, a := range apps {
		fa := FreelancerApplication{}
		if a.Project != nil {
			fa.ProjectTitle = a.Project.Title
			fa.ProjectState = a.Project.State
		}
		fa.Live = a.Status == models.ApplicationPending && fa.ProjectState == models.ProjectOpen
		a.Project = nil
		fa.Application = a
		out = append(out, fa)
	}
	return out, nil
}

type OpenFilter struct {
	// Skills to match against. Ignored when Mine is set.
	Skills []string
	// Mine matches against the calling freelancer's profile skills.
	Mine bool
	// Policy overrides the engine default when non-empty.
	Policy MatchPolicy
	repository.Page
}

// OpenProjects is the feed of projects that still take bids, newest first.
// With no skills to match, every open project is returned.
func (e *Engine) OpenProjects(ctx context.Context, actor Actor, f OpenFilter) ([]models.Project, error) {
	const op = "open_projects"
	policy := f.Policy
	if policy == "" {
		policy = e.matchPolicy
	}

	skills := NormalizeSkills(f.Skills)
	if f.Mine {
		if err := requireRole(actor, models.RoleFreelancer); err != nil {
			return nil, e.fail(op, err)
		}
		profile, err := e.store.GetFreelancerByUser(ctx, actor.ID)
		if err != nil {
			return nil, e.fail(op, err)
		}
		skills = NormalizeSkills(profile.Skills)
	}

	projects, err := e.store.ListProjects(ctx, repository.ProjectFilter{
		States: []models.ProjectState{models.ProjectOpen},
	})
	if err != nil {
		return nil, e.fail(op, err)
	}
	if len(skills) == 0 && !f.Mine {
		return paginate(projects, f.Page), nil
	}

	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if policy.Matches(NormalizeSkills(p.Skills), skills) {
			out = append(out, p)
		}
	}
	return paginate(out, f.Page), nil
}

func paginate[T any](items []T, p repository.Page) []T {
	if p.Offset > 0 {
		if p.Offset >= len(items) {
			return items[:0]
		}
		items = items[p.Offset:]
	}
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

func (e *Engine) AdminListUsers(ctx context.Context, actor Actor, f repository.UserFilter) ([]models.User, error) {
	const op = "admin_list_users"
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, e.fail(op, err)
	}
	out, err := e.store.ListUsers(ctx, f)
	return out, e.fail(op, err)
}

func (e *Engine) AdminListProjects(ctx context.Context, actor Actor, f repository.ProjectFilter) ([]models.Project, error) {
	const op = "admin_list_projects"
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, e.fail(op, err)
	}
	out, err := e.store.ListProjects(ctx, f)
	return out, e.fail(op, err)
}

func (e *Engine) AdminListApplications(ctx context.Context, actor Actor, f repository.ApplicationFilter) ([]models.Application, error) {
	const op = "admin_list_applications"
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, e.fail(op, err)
	}
	out, err := e.store.ListApplications(ctx, f)
	return out, e.fail(op, err)
}

// ProjectCounts returns the number of projects per lifecycle state.
func (e *Engine) ProjectCounts(ctx context.Context) (map[models.ProjectState]int64, error) {
	out, err := e.store.CountProjectsByState(ctx)
	return out, e.fail("project_counts", err)
}
