package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

type AdminHandler struct {
	Engine *workflow.Engine
}

func NewAdminHandler(e *workflow.Engine) *AdminHandler {
	return &AdminHandler{Engine: e}
}

func queryUUID(c *fiber.Ctx, key string, fe apperr.FieldErrors) *uuid.UUID {
	s := strings.TrimSpace(c.Query(key))
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		fe.Add(key, "must be a uuid")
		return nil
	}
	return &id
}

// Users: GET /api/admin/users?role=
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	f := repository.UserFilter{Page: pageFrom(c)}
	if r := strings.TrimSpace(c.Query("role")); r != "" {
		f.Role = models.Role(strings.ToLower(r))
		if !f.Role.Valid() {
			fe := apperr.FieldErrors{}
			fe.Add("role", "unknown role")
			return fe.Err()
		}
	}
	users, err := h.Engine.AdminListUsers(c.UserContext(), currentActor(c), f)
	if err != nil {
		return err
	}
	out := make([]userView, 0, len(users))
	for i := range users {
		out = append(out, viewOf(&users[i]))
	}
	return ok(c, "", out)
}

// Projects: GET /api/admin/projects?state=open,assigned&clientId=
func (h *AdminHandler) Projects(c *fiber.Ctx) error {
	fe := apperr.FieldErrors{}
	f := repository.ProjectFilter{Page: pageFrom(c)}
	for _, s := range strings.Split(c.Query("state"), ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s == "" {
			continue
		}
		st := models.ProjectState(s)
		if !st.Valid() {
			fe.Add("state", "unknown state "+s)
			continue
		}
		f.States = append(f.States, st)
	}
	f.ClientID = queryUUID(c, "clientId", fe)
	if err := fe.Err(); err != nil {
		return err
	}

	projects, err := h.Engine.AdminListProjects(c.UserContext(), currentActor(c), f)
	if err != nil {
		return err
	}
	return ok(c, "", projects)
}

// Applications: GET /api/admin/applications?projectId=&freelancerId=&status=
func (h *AdminHandler) Applications(c *fiber.Ctx) error {
	fe := apperr.FieldErrors{}
	f := repository.ApplicationFilter{Page: pageFrom(c)}
	f.ProjectID = queryUUID(c, "projectId", fe)
	f.FreelancerID = queryUUID(c, "freelancerId", fe)
	switch st := models.ApplicationStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))); st {
	case "":
	case models.ApplicationPending, models.ApplicationAccepted, models.ApplicationRejected:
		f.Status = st
	default:
		fe.Add("status", "unknown status")
	}
	if err := fe.Err(); err != nil {
		return err
	}

	apps, err := h.Engine.AdminListApplications(c.UserContext(), currentActor(c), f)
	if err != nil {
		return err
	}
	return ok(c, "", apps)
}
