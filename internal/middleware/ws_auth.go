// internal/middleware/ws_auth.go
package middleware

import (
	"log"
	"strings"

	"pos-service/internal/auth"

	"github.com/gofiber/fiber/v2"
)

const WSDeviceContextKey = "wsDeviceID"

// WSAuth validates token & device_id from query params for the realtime
// sync channel. Channel transports cannot set headers, so:
//
//	/ws/sync?token=abc123&device_id=dev_xyz
//
// On success the claims and device id land in Locals; on failure 401.
func WSAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))

		if accessToken == "" || deviceID == "" {
			log.Printf("[WSAuth] ❌ Missing query params | IP=%s | device_id='%s'", c.IP(), deviceID)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		claims, err := auth.ParseToken(secret, accessToken)
		if err != nil {
			log.Printf("[WSAuth] ❌ Validation failed for device %s: %v", deviceID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized: invalid token",
			})
		}

		c.Locals(ClaimsContextKey, claims)
		c.Locals(WSDeviceContextKey, deviceID)

		log.Printf("[WSAuth] ✅ Authenticated user %s (store %d, device %s)",
			claims.Username, claims.StoreID, deviceID)
		return c.Next()
	}
}
