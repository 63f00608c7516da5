package web

import (
	"log/slog"
	"strings"

	"github.com/ebrains-prov/provenance-api/pkg/auth"
	"github.com/gofiber/fiber/v3"
)

type tokenKey struct{}

// RequireBearer rejects requests without an "Authorization: Bearer" header
// and stores the token for the handlers.
func RequireBearer(logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return unauthorized(c, "a bearer token is required")
		}

		token = strings.TrimSpace(token)

		logger.DebugContext(c.Context(), "authenticated request",
			"method", c.Method(), "path", c.Path(), "subject", auth.Subject(token))

		c.Locals(tokenKey{}, token)

		return c.Next()
	}
}

func bearer(c fiber.Ctx) string {
	token, _ := c.Locals(tokenKey{}).(string)
	return token
}
