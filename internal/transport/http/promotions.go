// internal/transport/http/promotions.go
package http

import (
	"errors"
	"log"
	"time"

	"pos-service/pkg/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func (h *Handler) ListPromotions(c *fiber.Ctx) error {
	claims := mustClaims(c)
	limit := getQueryInt(c, "limit", 50, 1, 200)
	offset := getQueryInt(c, "offset", 0, 0, 100000)

	tx := scoped(h.db.Order("id DESC").Limit(limit).Offset(offset), scopeStoreID(c, claims))
	if c.Query("active") == "true" {
		now := time.Now().UTC()
		tx = tx.Where("active = true").
			Where("starts_at IS NULL OR starts_at <= ?", now).
			Where("ends_at IS NULL OR ends_at >= ?", now)
	}

	var promotions []models.Promotion
	if err := tx.Find(&promotions).Error; err != nil {
		log.Printf("❌ [PROMOTIONS] List failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch promotions"})
	}
	return c.JSON(fiber.Map{"promotions": promotions})
}

func (h *Handler) GetPromotion(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid promotion id"})
	}
	var promotion models.Promotion
	if err := h.db.First(&promotion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promotion not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch promotion"})
	}
	if !claims.CanAccessStore(promotion.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "promotion belongs to another store"})
	}
	return c.JSON(fiber.Map{"promotion": promotion})
}

func validatePromotion(p *models.Promotion) string {
	if p.Name == "" {
		return "name required"
	}
	switch p.Type {
	case models.PromotionTypePercentage:
		if p.Value < 0 || p.Value > 100 {
			return "percentage value must be between 0 and 100"
		}
	case models.PromotionTypeFixed:
		if p.Value < 0 {
			return "fixed value cannot be negative"
		}
	default:
		return "type must be percentage or fixed"
	}
	if p.StartsAt != nil && p.EndsAt != nil && p.EndsAt.Before(*p.StartsAt) {
		return "endsAt cannot precede startsAt"
	}
	return ""
}

func (h *Handler) CreatePromotion(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var promotion models.Promotion
	if err := c.BodyParser(&promotion); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if msg := validatePromotion(&promotion); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	promotion.ID = 0
	promotion.Active = activeOrDefault(c)
	if promotion.StoreID == 0 || !claims.CanAccessStore(promotion.StoreID) {
		promotion.StoreID = claims.StoreID
	}
	if err := h.db.Create(&promotion).Error; err != nil {
		log.Printf("❌ [PROMOTIONS] Create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create promotion"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"promotion": promotion})
}

func (h *Handler) UpdatePromotion(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid promotion id"})
	}
	var promotion models.Promotion
	if err := h.db.First(&promotion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promotion not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch promotion"})
	}
	if !claims.CanAccessStore(promotion.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "promotion belongs to another store"})
	}
	var req models.Promotion
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if msg := validatePromotion(&req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	promotion.Name = req.Name
	promotion.Description = req.Description
	promotion.Type = req.Type
	promotion.Value = req.Value
	promotion.StartsAt = req.StartsAt
	promotion.EndsAt = req.EndsAt
	promotion.Active = req.Active
	if err := h.db.Save(&promotion).Error; err != nil {
		log.Printf("❌ [PROMOTIONS] Update %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update promotion"})
	}
	return c.JSON(fiber.Map{"promotion": promotion})
}

func (h *Handler) DeletePromotion(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid promotion id"})
	}
	var promotion models.Promotion
	if err := h.db.First(&promotion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promotion not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch promotion"})
	}
	if !claims.CanAccessStore(promotion.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "promotion belongs to another store"})
	}
	if err := h.db.Delete(&promotion).Error; err != nil {
		log.Printf("❌ [PROMOTIONS] Delete %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete promotion"})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "promotion deleted"})
}
