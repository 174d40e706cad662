package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

// RequireRoles must run after AttachJWTLocals.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		_, role, ok := CurrentUser(c)
		if !ok {
			return apperr.New(apperr.CodeUnauthenticated, "sign in required")
		}
		if !allowedSet[role] {
			return apperr.New(apperr.CodeNotAuthorized, "forbidden: insufficient role")
		}
		return c.Next()
	}
}
