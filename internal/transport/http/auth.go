// internal/transport/http/auth.go
package http

import (
	"errors"
	"log"
	"time"

	"pos-service/internal/auth"
	"pos-service/internal/middleware"
	"pos-service/pkg/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Login exchanges credentials for a bearer token carrying the user's
// flattened role permissions.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "username and password required"})
	}

	var user models.User
	err := h.db.Preload("Role").Where("username = ?", req.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}
	if err != nil {
		log.Printf("❌ [AUTH] Login lookup failed for %s: %v", req.Username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "login failed"})
	}
	if !user.Active {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "account disabled"})
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		log.Printf("[AUTH] ❌ Bad password for %s | IP=%s", req.Username, c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	var permissions []string
	if user.Role != nil {
		permissions = user.Role.PermissionList()
	}

	ttl := time.Duration(h.cfg.TokenTTLMin) * time.Minute
	token, err := auth.GenerateToken(h.cfg.JWTSecret, ttl, &user, permissions)
	if err != nil {
		log.Printf("❌ [AUTH] Token generation failed for %s: %v", req.Username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "login failed"})
	}

	log.Printf("✅ [AUTH] %s logged in (store=%d, perms=%d)", user.Username, user.StoreID, len(permissions))
	return c.JSON(fiber.Map{
		"token":     token,
		"expiresIn": int(ttl.Seconds()),
		"user":      user,
	})
}

// Me returns the identity behind the presented token.
func (h *Handler) Me(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	var user models.User
	if err := h.db.Preload("Role").First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(fiber.Map{"user": user, "permissions": claims.Permissions})
}
