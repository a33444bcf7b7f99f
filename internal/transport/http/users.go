// internal/transport/http/users.go
package http

import (
	"errors"
	"log"

	"pos-service/pkg/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type userRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
	RoleID   uint   `json:"roleId"`
	StoreID  uint   `json:"storeId"`
	Active   *bool  `json:"active"`
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	claims := mustClaims(c)
	limit := getQueryInt(c, "limit", 50, 1, 200)
	offset := getQueryInt(c, "offset", 0, 0, 100000)

	var users []models.User
	tx := h.db.Preload("Role").Order("id ASC").Limit(limit).Offset(offset)
	tx = scoped(tx, scopeStoreID(c, claims))
	if err := tx.Find(&users).Error; err != nil {
		log.Printf("❌ [USERS] List failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch users"})
	}
	return c.JSON(fiber.Map{"users": users})
}

func (h *Handler) GetUser(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	var user models.User
	if err := h.db.Preload("Role").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch user"})
	}
	if !claims.CanAccessStore(user.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "user belongs to another store"})
	}
	return c.JSON(fiber.Map{"user": user})
}

func (h *Handler) CreateUser(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Username == "" || req.Password == "" || req.RoleID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "username, password and roleId required"})
	}
	if req.StoreID == 0 {
		req.StoreID = claims.StoreID
	}
	if !claims.CanAccessStore(req.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "cannot create users for another store"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ [USERS] Hash failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create user"})
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		RoleID:       req.RoleID,
		StoreID:      req.StoreID,
		Active:       true,
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := h.db.Create(&user).Error; err != nil {
		log.Printf("❌ [USERS] Create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create user"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch user"})
	}
	if !claims.CanAccessStore(user.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "user belongs to another store"})
	}

	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	user.Email = req.Email
	user.FullName = req.FullName
	if req.RoleID != 0 {
		user.RoleID = req.RoleID
	}
	if req.StoreID != 0 && claims.CanAccessStore(req.StoreID) {
		user.StoreID = req.StoreID
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update user"})
		}
		user.PasswordHash = string(hash)
	}

	if err := h.db.Save(&user).Error; err != nil {
		log.Printf("❌ [USERS] Update %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update user"})
	}
	return c.JSON(fiber.Map{"user": user})
}

func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch user"})
	}
	if !claims.CanAccessStore(user.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "user belongs to another store"})
	}
	if err := h.db.Delete(&user).Error; err != nil {
		log.Printf("❌ [USERS] Delete %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete user"})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "user deleted"})
}

// RegisterDeviceToken upserts an FCM registration for the caller's device.
func (h *Handler) RegisterDeviceToken(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var req struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "token required"})
	}

	var existing models.DeviceToken
	err := h.db.Where("token = ?", req.Token).First(&existing).Error
	switch {
	case err == nil:
		existing.UserID = claims.UserID
		existing.StoreID = claims.StoreID
		existing.Platform = req.Platform
		if err := h.db.Save(&existing).Error; err != nil {
			log.Printf("❌ [DEVICES] Token update failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save token"})
		}
		return c.JSON(fiber.Map{"status": "success", "deviceToken": existing})
	case errors.Is(err, gorm.ErrRecordNotFound):
		token := models.DeviceToken{
			UserID:   claims.UserID,
			StoreID:  claims.StoreID,
			Token:    req.Token,
			Platform: req.Platform,
		}
		if err := h.db.Create(&token).Error; err != nil {
			log.Printf("❌ [DEVICES] Token create failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save token"})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "deviceToken": token})
	default:
		log.Printf("❌ [DEVICES] Token lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save token"})
	}
}

func (h *Handler) UnregisterDeviceToken(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "token required"})
	}
	result := h.db.Where("token = ? AND user_id = ?", req.Token, claims.UserID).
		Delete(&models.DeviceToken{})
	if result.Error != nil {
		log.Printf("❌ [DEVICES] Token delete failed: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete token"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "token not found"})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "token removed"})
}
