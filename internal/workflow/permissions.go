package workflow

import (
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

// Permission checks run before any field validation, so an actor in the
// wrong role gets NotAuthorized even for a malformed payload.

func requireActor(a Actor) error {
	if a.IsZero() {
		return apperr.New(apperr.CodeUnauthenticated, "sign in required")
	}
	return nil
}

func requireRole(a Actor, roles ...models.Role) error {
	if err := requireActor(a); err != nil {
		return err
	}
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return apperr.Newf(apperr.CodeNotAuthorized, "role %s may not perform this action", a.Role)
}

func requireOwner(a Actor, p *models.Project) error {
	if a.Role != models.RoleClient || p.ClientID != a.ID {
		return apperr.New(apperr.CodeNotAuthorized, "only the client who posted the project may do this")
	}
	return nil
}

func requireOwnerOrAdmin(a Actor, p *models.Project) error {
	if a.Role == models.RoleAdmin {
		return nil
	}
	return requireOwner(a, p)
}

func requireAssigned(a Actor, p *models.Project) error {
	if a.Role != models.RoleFreelancer || p.AssignedFreelancerID == nil || *p.AssignedFreelancerID != a.ID {
		return apperr.New(apperr.CodeNotAuthorized, "only the assigned freelancer may do this")
	}
	return nil
}

// isParticipant reports whether a is the owner, the assigned freelancer or
// an admin. Bidders are checked separately against the store.
func isParticipant(a Actor, p *models.Project) bool {
	switch {
	case a.Role == models.RoleAdmin:
		return true
	case a.Role == models.RoleClient:
		return p.ClientID == a.ID
	case a.Role == models.RoleFreelancer:
		return p.AssignedFreelancerID != nil && *p.AssignedFreelancerID == a.ID
	}
	return false
}
