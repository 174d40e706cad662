package handlers

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

type ProjectHandler struct {
	Engine *workflow.Engine
}

func NewProjectHandler(e *workflow.Engine) *ProjectHandler {
	return &ProjectHandler{Engine: e}
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int64

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*n = flexInt(v)
	return nil
}

var errFractionalAmount = errors.New("budget must be a whole amount")

// wholeAmount is a budget in whole currency units. A numeric value with a
// fractional part decodes to errFractionalAmount.
type wholeAmount int64

func (a *wholeAmount) UnmarshalJSON(b []byte) error {
	var n flexInt
	if err := n.UnmarshalJSON(b); err != nil {
		s := strings.TrimSpace(strings.Trim(string(b), `"`))
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.Abs(f) > math.MaxInt64/2 {
			return err
		}
		if f != math.Trunc(f) {
			return errFractionalAmount
		}
		*a = wholeAmount(f)
		return nil
	}
	*a = wholeAmount(n)
	return nil
}

// bodyError maps a BodyParser failure to the response error.
func bodyError(err error) error {
	if errors.Is(err, errFractionalAmount) {
		fe := apperr.FieldErrors{}
		fe.Add("budget", errFractionalAmount.Error())
		return fe.Err()
	}
	return invalidBody()
}

type NewProjectReq struct {
	Title       string      `json:"title" form:"title"`
	Description string      `json:"description" form:"description"`
	Budget      wholeAmount `json:"budget" form:"budget"`
	Skills      string      `json:"skills" form:"skills"` // csv
	ClientID    string      `json:"clientId" form:"clientId"`
	// clientName / clientEmail are ignored; the account is the source
	ClientName  string `json:"clientName" form:"clientName"`
	ClientEmail string `json:"clientEmail" form:"clientEmail"`
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req NewProjectReq
	if err := c.BodyParser(&req); err != nil {
		return bodyError(err)
	}

	in := workflow.NewProject{
		Title:       req.Title,
		Description: req.Description,
		Budget:      int64(req.Budget),
		Skills:      workflow.SplitSkills(req.Skills),
	}
	if s := strings.TrimSpace(req.ClientID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return apperr.New(apperr.CodeNotAuthorized, "clientId does not match the signed-in user")
		}
		in.ClientID = &id
	}

	p, err := h.Engine.CreateProject(c.UserContext(), currentActor(c), in)
	if err != nil {
		return err
	}
	return ok(c, "Project created successfully", p)
}

func (h *ProjectHandler) List(c *fiber.Ctx) error {
	projects, err := h.Engine.ListProjects(c.UserContext(), pageFrom(c))
	if err != nil {
		return err
	}
	return ok(c, "", projects)
}

func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", apperr.CodeProjectNotFound, "project")
	if err != nil {
		return err
	}
	p, err := h.Engine.GetProject(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, "", p)
}

// Open serves the bidding feed. skills is a csv; mine=true matches against
// the caller's own profile instead.
func (h *ProjectHandler) Open(c *fiber.Ctx) error {
	f := workflow.OpenFilter{
		Skills: workflow.SplitSkills(c.Query("skills")),
		Mine:   c.QueryBool("mine"),
		Page:   pageFrom(c),
	}
	if m := c.Query("match"); m != "" {
		policy, err := workflow.ParseMatchPolicy(m)
		if err != nil {
			fe := apperr.FieldErrors{}
			fe.Add("match", "must be subset or overlap")
			return fe.Err()
		}
		f.Policy = policy
	}

	projects, err := h.Engine.OpenProjects(c.UserContext(), currentActor(c), f)
	if err != nil {
		return err
	}
	return ok(c, "", projects)
}

func (h *ProjectHandler) Start(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", apperr.CodeProjectNotFound, "project")
	if err != nil {
		return err
	}
	p, err := h.Engine.StartWork(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, "work started", p)
}

func (h *ProjectHandler) Complete(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", apperr.CodeProjectNotFound, "project")
	if err != nil {
		return err
	}
	p, err := h.Engine.CompleteProject(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, "project completed", p)
}

type CancelReq struct {
	Reason string `json:"reason" form:"reason"`
}

func (h *ProjectHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", apperr.CodeProjectNotFound, "project")
	if err != nil {
		return err
	}
	var req CancelReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
	}

	res, err := h.Engine.CancelProject(c.UserContext(), currentActor(c), id, strings.TrimSpace(req.Reason))
	if err != nil {
		return err
	}
	msg := "project cancelled"
	if res.AlreadyCancelled {
		msg = "project was already cancelled"
	}
	return ok(c, msg, fiber.Map{
		"project":          res.Project,
		"alreadyCancelled": res.AlreadyCancelled,
	})
}

func (h *ProjectHandler) History(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", apperr.CodeProjectNotFound, "project")
	if err != nil {
		return err
	}
	events, err := h.Engine.ProjectHistory(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, "", events)
}
