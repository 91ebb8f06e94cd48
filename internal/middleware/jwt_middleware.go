package middleware

import (
	"strings"

	"seyon/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TokenHeader is the header the admin console sends its token in.
const TokenHeader = "x-auth-token"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// The token is read from x-auth-token, falling back to "Authorization: Bearer <token>".
func AuthRequired(authService *services.AuthService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			return denied(c)
		}

		principal, err := authService.ValidateToken(tokenString)
		if err != nil {
			log.Debug("JWT validation failed", zap.String("path", c.Path()), zap.Error(err))
			return denied(c)
		}

		// Store the principal in Fiber context for subsequent handlers
		c.Locals("user_id", principal.UserID)
		c.Locals("username", principal.Username)

		return c.Next()
	}
}

func tokenFromRequest(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Get(TokenHeader)); token != "" {
		return token
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func denied(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"msg": "Authorization denied",
	})
}
