package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

type BidHandler struct {
	Engine *workflow.Engine
}

func NewBidHandler(e *workflow.Engine) *BidHandler {
	return &BidHandler{Engine: e}
}

type SubmitBidReq struct {
	ProjectID string      `json:"projectId" form:"projectId"`
	Budget    wholeAmount `json:"budget" form:"budget"`
	Time      flexInt     `json:"time" form:"time"` // days
	Proposal  string      `json:"proposal" form:"proposal"`
}

func (h *BidHandler) Submit(c *fiber.Ctx) error {
	var req SubmitBidReq
	if err := c.BodyParser(&req); err != nil {
		return bodyError(err)
	}

	// an unparsable id is left as uuid.Nil; the engine reports it as a
	// field error after the role check
	projectID, _ := uuid.Parse(strings.TrimSpace(req.ProjectID))

	app, err := h.Engine.SubmitBid(c.UserContext(), currentActor(c), workflow.Bid{
		ProjectID:     projectID,
		Budget:        int64(req.Budget),
		EstimatedDays: int(req.Time),
		Proposal:      req.Proposal,
	})
	if err != nil {
		return err
	}
	return ok(c, "Bid submitted successfully", app)
}

func (h *BidHandler) ListForProject(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", apperr.CodeProjectNotFound, "project")
	if err != nil {
		return err
	}
	apps, err := h.Engine.ApplicationsByProject(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, "", apps)
}

func (h *BidHandler) Accept(c *fiber.Ctx) error {
	projectID, err := paramUUID(c, "id", apperr.CodeProjectNotFound, "project")
	if err != nil {
		return err
	}
	appID, err := paramUUID(c, "appId", apperr.CodeApplicationNotFound, "application")
	if err != nil {
		return err
	}

	res, err := h.Engine.AcceptBid(c.UserContext(), currentActor(c), projectID, appID)
	if err != nil {
		return err
	}
	rejected := make([]uuid.UUID, 0, len(res.Rejected))
	for _, a := range res.Rejected {
		rejected = append(rejected, a.ID)
	}
	return ok(c, "Application accepted", fiber.Map{
		"project":     res.Project,
		"application": res.Application,
		"rejected":    rejected,
	})
}

// Mine lists the caller's bids. Admins may pass ?freelancerId= to read
// someone else's.
func (h *BidHandler) Mine(c *fiber.Ctx) error {
	actor := currentActor(c)
	target := actor.ID
	if s := c.Query("freelancerId"); s != "" && actor.Role == models.RoleAdmin {
		id, err := uuid.Parse(s)
		if err != nil {
			return apperr.New(apperr.CodeUserNotFound, "user not found")
		}
		target = id
	}
	apps, err := h.Engine.ApplicationsByFreelancer(c.UserContext(), actor, target)
	if err != nil {
		return err
	}
	return ok(c, "", apps)
}
