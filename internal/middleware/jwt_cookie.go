package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/utils"
)

const CookieName = "jm_token"

// tokenFrom reads the session token from the cookie, falling back to an
// Authorization: Bearer header for non-browser clients.
func tokenFrom(c *fiber.Ctx) string {
	if tok := c.Cookies(CookieName); tok != "" {
		return tok
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func JWTFromCookie(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			return apperr.New(apperr.CodeUnauthenticated, "sign in required")
		}

		claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return apperr.New(apperr.CodeUnauthenticated, "session expired or invalid")
		}

		c.Locals("user", claims)
		return c.Next()
	}
}
