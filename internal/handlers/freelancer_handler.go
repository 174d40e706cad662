package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

type FreelancerHandler struct {
	Engine *workflow.Engine
}

func NewFreelancerHandler(e *workflow.Engine) *FreelancerHandler {
	return &FreelancerHandler{Engine: e}
}

// Get returns a freelancer's public profile; :id is the user id.
func (h *FreelancerHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", apperr.CodeUserNotFound, "freelancer")
	if err != nil {
		return err
	}
	u, err := h.Engine.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	if u.Role != models.RoleFreelancer || u.Profile == nil {
		return apperr.New(apperr.CodeUserNotFound, "freelancer not found")
	}
	return ok(c, "", workflow.FreelancerSummary{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Skills:      append([]string{}, u.Profile.Skills...),
		Description: u.Profile.Description,
	})
}

type UpdateFreelancerReq struct {
	FreelancerID string `json:"freelancerId" form:"freelancerId"`
	UpdateSkills string `json:"updateSkills" form:"updateSkills"` // csv
	Description  string `json:"description" form:"description"`
}

func (h *FreelancerHandler) Update(c *fiber.Ctx) error {
	var req UpdateFreelancerReq
	if err := c.BodyParser(&req); err != nil {
		return invalidBody()
	}

	in := workflow.ProfileUpdate{
		Skills:      workflow.SplitSkills(req.UpdateSkills),
		Description: req.Description,
	}
	if s := strings.TrimSpace(req.FreelancerID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return apperr.New(apperr.CodeNotAuthorized, "cannot edit another freelancer's profile")
		}
		in.FreelancerID = &id
	}

	f, err := h.Engine.UpdateFreelancerProfile(c.UserContext(), currentActor(c), in)
	if err != nil {
		return err
	}
	return ok(c, "Profile updated", f)
}
