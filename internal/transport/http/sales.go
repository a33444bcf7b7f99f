// internal/transport/http/sales.go
package http

import (
	"errors"
	"log"
	"time"

	"pos-service/pkg/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func (h *Handler) ListSales(c *fiber.Ctx) error {
	claims := mustClaims(c)
	limit := getQueryInt(c, "limit", 50, 1, 200)
	offset := getQueryInt(c, "offset", 0, 0, 100000)

	tx := scoped(h.db.Order("sold_at DESC").Limit(limit).Offset(offset), scopeStoreID(c, claims))
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid from (RFC3339)"})
		}
		tx = tx.Where("sold_at >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid to (RFC3339)"})
		}
		tx = tx.Where("sold_at <= ?", t)
	}
	if status := c.Query("status"); status != "" {
		tx = tx.Where("status = ?", status)
	}

	var sales []models.Sale
	if err := tx.Find(&sales).Error; err != nil {
		log.Printf("❌ [SALES] List failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch sales"})
	}
	return c.JSON(fiber.Map{"sales": sales})
}

func (h *Handler) GetSale(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid sale id"})
	}
	var sale models.Sale
	if err := h.db.First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sale not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch sale"})
	}
	if !claims.CanAccessStore(sale.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "sale belongs to another store"})
	}
	return c.JSON(fiber.Map{"sale": sale})
}

func (h *Handler) CreateSale(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var sale models.Sale
	if err := c.BodyParser(&sale); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if sale.Total < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "total cannot be negative"})
	}
	sale.ID = 0
	if sale.StoreID == 0 || !claims.CanAccessStore(sale.StoreID) {
		sale.StoreID = claims.StoreID
	}
	if sale.UserID == 0 {
		sale.UserID = claims.UserID
	}
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = "completed"
	}
	if err := h.db.Create(&sale).Error; err != nil {
		log.Printf("❌ [SALES] Create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create sale"})
	}

	if sale.CustomerEmail != "" && h.email.Enabled() {
		h.sendReceiptAsync(&sale)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"sale": sale})
}

func (h *Handler) UpdateSale(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid sale id"})
	}
	var sale models.Sale
	if err := h.db.First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sale not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch sale"})
	}
	if !claims.CanAccessStore(sale.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "sale belongs to another store"})
	}
	var req models.Sale
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	sale.Items = req.Items
	sale.Subtotal = req.Subtotal
	sale.Discount = req.Discount
	sale.Tax = req.Tax
	sale.Total = req.Total
	if req.Status != "" {
		sale.Status = req.Status
	}
	sale.CustomerEmail = req.CustomerEmail
	if !req.SoldAt.IsZero() {
		sale.SoldAt = req.SoldAt
	}
	if err := h.db.Save(&sale).Error; err != nil {
		log.Printf("❌ [SALES] Update %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update sale"})
	}
	return c.JSON(fiber.Map{"sale": sale})
}

func (h *Handler) DeleteSale(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid sale id"})
	}
	var sale models.Sale
	if err := h.db.First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sale not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch sale"})
	}
	if !claims.CanAccessStore(sale.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "sale belongs to another store"})
	}
	if err := h.db.Delete(&sale).Error; err != nil {
		log.Printf("❌ [SALES] Delete %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete sale"})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "sale deleted"})
}

// EmailReceipt re-sends a sale's receipt, optionally to an override address.
func (h *Handler) EmailReceipt(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid sale id"})
	}
	var sale models.Sale
	if err := h.db.First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sale not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch sale"})
	}
	if !claims.CanAccessStore(sale.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "sale belongs to another store"})
	}

	var req struct {
		Email string `json:"email"`
	}
	_ = c.BodyParser(&req)
	to := req.Email
	if to == "" {
		to = sale.CustomerEmail
	}
	if to == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no recipient email on sale; pass one in the body"})
	}
	if !h.email.Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "email delivery not configured"})
	}

	var store models.Store
	if err := h.db.First(&store, sale.StoreID).Error; err != nil {
		log.Printf("⚠️ [SALES] Receipt store lookup failed for sale %d: %v", sale.ID, err)
	}
	if err := h.email.SendReceipt(to, &store, &sale); err != nil {
		log.Printf("❌ [SALES] Receipt for sale %d failed: %v", sale.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to queue receipt"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "queued",
		"message": "receipt queued for delivery",
	})
}

// sendReceiptAsync fires a receipt without blocking checkout.
func (h *Handler) sendReceiptAsync(sale *models.Sale) {
	var store models.Store
	if err := h.db.First(&store, sale.StoreID).Error; err != nil {
		log.Printf("⚠️ [SALES] Receipt store lookup failed for sale %d: %v", sale.ID, err)
	}
	if err := h.email.SendReceipt(sale.CustomerEmail, &store, sale); err != nil {
		log.Printf("⚠️ [SALES] Receipt for sale %d not sent: %v", sale.ID, err)
	}
}

func (h *Handler) ListPayments(c *fiber.Ctx) error {
	claims := mustClaims(c)
	limit := getQueryInt(c, "limit", 50, 1, 200)
	offset := getQueryInt(c, "offset", 0, 0, 100000)

	tx := scoped(h.db.Order("id DESC").Limit(limit).Offset(offset), scopeStoreID(c, claims))
	if saleID := getQueryInt(c, "sale_id", 0, 0, 1<<30); saleID > 0 {
		tx = tx.Where("sale_id = ?", saleID)
	}

	var payments []models.Payment
	if err := tx.Find(&payments).Error; err != nil {
		log.Printf("❌ [PAYMENTS] List failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch payments"})
	}
	return c.JSON(fiber.Map{"payments": payments})
}

func (h *Handler) GetPayment(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payment id"})
	}
	var payment models.Payment
	if err := h.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payment not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch payment"})
	}
	if !claims.CanAccessStore(payment.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "payment belongs to another store"})
	}
	return c.JSON(fiber.Map{"payment": payment})
}

func (h *Handler) CreatePayment(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var payment models.Payment
	if err := c.BodyParser(&payment); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if payment.Method == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "method required"})
	}
	if payment.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be positive"})
	}
	payment.ID = 0
	if payment.StoreID == 0 || !claims.CanAccessStore(payment.StoreID) {
		payment.StoreID = claims.StoreID
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	if err := h.db.Create(&payment).Error; err != nil {
		log.Printf("❌ [PAYMENTS] Create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create payment"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment": payment})
}

func (h *Handler) UpdatePayment(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payment id"})
	}
	var payment models.Payment
	if err := h.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payment not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch payment"})
	}
	if !claims.CanAccessStore(payment.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "payment belongs to another store"})
	}
	var req models.Payment
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be positive"})
	}
	payment.SaleID = req.SaleID
	payment.Method = req.Method
	payment.Amount = req.Amount
	payment.Reference = req.Reference
	if !req.PaidAt.IsZero() {
		payment.PaidAt = req.PaidAt
	}
	if err := h.db.Save(&payment).Error; err != nil {
		log.Printf("❌ [PAYMENTS] Update %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update payment"})
	}
	return c.JSON(fiber.Map{"payment": payment})
}

func (h *Handler) DeletePayment(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payment id"})
	}
	var payment models.Payment
	if err := h.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payment not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch payment"})
	}
	if !claims.CanAccessStore(payment.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "payment belongs to another store"})
	}
	if err := h.db.Delete(&payment).Error; err != nil {
		log.Printf("❌ [PAYMENTS] Delete %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete payment"})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "payment deleted"})
}
