// internal/middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"pos-service/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// Context key for the resolved claims (using string keys for Fiber Locals)
const ClaimsContextKey = "claims"

// BearerAuth validates the Authorization header and stores the resolved
// claims in Locals for downstream handlers.
func BearerAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Printf("[AUTH] ❌ REJECTED (no bearer) | IP=%s | Path=%s", c.IP(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized: missing bearer token",
			})
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := auth.ParseToken(secret, token)
		if err != nil {
			log.Printf("[AUTH] ❌ REJECTED (invalid token) | IP=%s | Path=%s | %v", c.IP(), c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized: invalid or expired token",
			})
		}

		c.Locals(ClaimsContextKey, claims)
		return c.Next()
	}
}

// RequirePermission gates a route on one permission string. An
// administrative override claim satisfies every gate; the override check
// runs first.
func RequirePermission(required string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := GetClaims(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized: missing identity",
			})
		}
		if !auth.Allowed(claims.Permissions, required) {
			log.Printf("[AUTH] ❌ FORBIDDEN | user=%s | need=%s | Path=%s",
				claims.Username, required, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: missing permission " + required,
			})
		}
		return c.Next()
	}
}

// GetClaims retrieves the authenticated claims from Locals.
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	value := c.Locals(ClaimsContextKey)
	claims, ok := value.(*auth.Claims)
	if !ok {
		log.Printf("[AUTH] GetClaims: FAILED to retrieve claims from context, value=%v", value)
		return nil, false
	}
	return claims, ok
}
