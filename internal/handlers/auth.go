package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/middleware"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/utils"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

type AuthHandler struct {
	Engine       *workflow.Engine
	JWTSecret    string
	Expires      int
	SecureCookie bool
}

type RegisterReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"usertype"` // client / freelancer (admin is never self-registered)
}

type userView struct {
	ID       string             `json:"id"`
	Username string             `json:"username"`
	Email    string             `json:"email"`
	Role     models.Role        `json:"role"`
	Profile  *models.Freelancer `json:"profile,omitempty"`
}

func viewOf(u *models.User) userView {
	return userView{ID: u.ID.String(), Username: u.Username, Email: u.Email, Role: u.Role, Profile: u.Profile}
}

func (h *AuthHandler) setSession(c *fiber.Ctx, u *models.User) (string, error) {
	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeInternal, "failed to sign token")
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
	return token, nil
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return invalidBody()
	}

	u, err := h.Engine.RegisterUser(c.UserContext(), workflow.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: strings.TrimSpace(req.Password),
		Role:     models.Role(strings.ToLower(strings.TrimSpace(req.UserType))),
	})
	if err != nil {
		return err
	}

	token, err := h.setSession(c, u)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "registered",
		"data":    fiber.Map{"user": viewOf(u), "token": token},
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return invalidBody()
	}

	fe := apperr.FieldErrors{}
	if strings.TrimSpace(req.Email) == "" {
		fe.Add("email", "email is required")
	}
	if strings.TrimSpace(req.Password) == "" {
		fe.Add("password", "password is required")
	}
	if err := fe.Err(); err != nil {
		return err
	}

	u, err := h.Engine.Authenticate(c.UserContext(), req.Email, strings.TrimSpace(req.Password))
	if err != nil {
		return err
	}
	token, err := h.setSession(c, u)
	if err != nil {
		return err
	}
	return ok(c, "logged in", fiber.Map{"user": viewOf(u), "token": token})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // hapus cookie
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
	})
	return ok(c, "logged out", nil)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor := currentActor(c)
	u, err := h.Engine.GetUser(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return ok(c, "", fiber.Map{"user": viewOf(u)})
}
