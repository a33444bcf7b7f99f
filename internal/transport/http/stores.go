// internal/transport/http/stores.go
package http

import (
	"errors"
	"log"

	"pos-service/internal/auth"
	"pos-service/internal/middleware"
	"pos-service/pkg/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Stores and roles are not store-scoped: any caller holding the view
// permission sees all of them.

func (h *Handler) ListStores(c *fiber.Ctx) error {
	limit := getQueryInt(c, "limit", 50, 1, 200)
	offset := getQueryInt(c, "offset", 0, 0, 100000)
	var stores []models.Store
	if err := h.db.Order("id ASC").Limit(limit).Offset(offset).Find(&stores).Error; err != nil {
		log.Printf("❌ [STORES] List failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch stores"})
	}
	return c.JSON(fiber.Map{"stores": stores})
}

func (h *Handler) GetStore(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid store id"})
	}
	var store models.Store
	if err := h.db.First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch store"})
	}
	return c.JSON(fiber.Map{"store": store})
}

func (h *Handler) CreateStore(c *fiber.Ctx) error {
	var store models.Store
	if err := c.BodyParser(&store); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if store.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}
	store.ID = 0
	store.Active = activeOrDefault(c)
	if err := h.db.Create(&store).Error; err != nil {
		log.Printf("❌ [STORES] Create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create store"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"store": store})
}

func (h *Handler) UpdateStore(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid store id"})
	}
	var store models.Store
	if err := h.db.First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch store"})
	}
	var req models.Store
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	store.Name = req.Name
	store.Address = req.Address
	store.Phone = req.Phone
	store.Email = req.Email
	store.Active = req.Active
	if err := h.db.Save(&store).Error; err != nil {
		log.Printf("❌ [STORES] Update %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update store"})
	}
	return c.JSON(fiber.Map{"store": store})
}

func (h *Handler) DeleteStore(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid store id"})
	}
	result := h.db.Delete(&models.Store{}, id)
	if result.Error != nil {
		log.Printf("❌ [STORES] Delete %d failed: %v", id, result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete store"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "store not found"})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "store deleted"})
}

func (h *Handler) ListRoles(c *fiber.Ctx) error {
	var roles []models.Role
	if err := h.db.Order("id ASC").Find(&roles).Error; err != nil {
		log.Printf("❌ [ROLES] List failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch roles"})
	}
	return c.JSON(fiber.Map{"roles": roles})
}

func (h *Handler) GetRole(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid role id"})
	}
	var role models.Role
	if err := h.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "role not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch role"})
	}
	return c.JSON(fiber.Map{"role": role})
}

type roleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) CreateRole(c *fiber.Ctx) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}
	role := models.Role{Name: req.Name, Description: req.Description}
	if err := role.SetPermissionList(req.Permissions); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid permissions"})
	}
	if err := h.db.Create(&role).Error; err != nil {
		log.Printf("❌ [ROLES] Create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create role"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"role": role})
}

func (h *Handler) UpdateRole(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid role id"})
	}
	var role models.Role
	if err := h.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "role not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch role"})
	}
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	role.Name = req.Name
	role.Description = req.Description
	if err := role.SetPermissionList(req.Permissions); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid permissions"})
	}
	if err := h.db.Save(&role).Error; err != nil {
		log.Printf("❌ [ROLES] Update %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update role"})
	}
	return c.JSON(fiber.Map{"role": role})
}

func (h *Handler) DeleteRole(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid role id"})
	}
	var inUse int64
	if err := h.db.Model(&models.User{}).Where("role_id = ?", id).Count(&inUse).Error; err == nil && inUse > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "role is assigned to users"})
	}
	result := h.db.Delete(&models.Role{}, id)
	if result.Error != nil {
		log.Printf("❌ [ROLES] Delete %d failed: %v", id, result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete role"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "role not found"})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "role deleted"})
}

// mustClaims is used by handlers registered past BearerAuth, where claims
// are always present.
func mustClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := middleware.GetClaims(c)
	return claims
}
