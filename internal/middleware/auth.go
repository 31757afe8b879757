// Package middleware holds the bearer-token auth middleware; the
// cors/logger/recover middleware is wired in handlers.RegisterRoutes.
package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// BearerAuth checks the Authorization header against a single shared token,
// matching SPEC_FULL.md's bearer-token stub (no JWT, no per-user sessions).
// An empty token disables the check, which is the local-development default.
func BearerAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}

		const prefix = "Bearer "
		header := c.Get("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}

		supplied := header[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid bearer token"})
		}

		return c.Next()
	}
}
