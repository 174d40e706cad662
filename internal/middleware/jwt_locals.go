package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/utils"
)

// AttachJWTLocals copies the verified claims into the userId and role locals.
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("user").(*utils.Claims)
		if !ok || claims == nil {
			return apperr.New(apperr.CodeUnauthenticated, "sign in required")
		}

		uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
		if err != nil {
			return apperr.New(apperr.CodeUnauthenticated, "session expired or invalid")
		}
		role := models.Role(strings.ToLower(strings.TrimSpace(claims.Role)))
		if !role.Valid() {
			return apperr.New(apperr.CodeUnauthenticated, "session expired or invalid")
		}

		c.Locals("userId", uid)
		c.Locals("role", role)

		return c.Next()
	}
}

// Authenticated chains JWTFromCookie and AttachJWTLocals.
func Authenticated(secret string) []fiber.Handler {
	return []fiber.Handler{JWTFromCookie(secret), AttachJWTLocals()}
}

// CurrentUser returns the identity attached by AttachJWTLocals.
func CurrentUser(c *fiber.Ctx) (uuid.UUID, models.Role, bool) {
	uid, ok := c.Locals("userId").(uuid.UUID)
	if !ok || uid == uuid.Nil {
		return uuid.Nil, "", false
	}
	role, _ := c.Locals("role").(models.Role)
	return uid, role, true
}
