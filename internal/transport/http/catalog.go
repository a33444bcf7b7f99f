// internal/transport/http/catalog.go
package http

import (
	"context"
	"errors"
	"log"
	"time"

	"pos-service/pkg/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func (h *Handler) ListCategories(c *fiber.Ctx) error {
	claims := mustClaims(c)
	limit := getQueryInt(c, "limit", 100, 1, 500)
	offset := getQueryInt(c, "offset", 0, 0, 100000)

	var categories []models.Category
	tx := scoped(h.db.Order("name ASC").Limit(limit).Offset(offset), scopeStoreID(c, claims))
	if err := tx.Find(&categories).Error; err != nil {
		log.Printf("❌ [CATALOG] List categories failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch categories"})
	}
	return c.JSON(fiber.Map{"categories": categories})
}

func (h *Handler) GetCategory(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid category id"})
	}
	var category models.Category
	if err := h.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "category not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch category"})
	}
	if !claims.CanAccessStore(category.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "category belongs to another store"})
	}
	return c.JSON(fiber.Map{"category": category})
}

func (h *Handler) CreateCategory(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var category models.Category
	if err := c.BodyParser(&category); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if category.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}
	category.ID = 0
	if category.StoreID == 0 || !claims.CanAccessStore(category.StoreID) {
		category.StoreID = claims.StoreID
	}
	if err := h.db.Create(&category).Error; err != nil {
		log.Printf("❌ [CATALOG] Create category failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create category"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"category": category})
}

func (h *Handler) UpdateCategory(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid category id"})
	}
	var category models.Category
	if err := h.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "category not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch category"})
	}
	if !claims.CanAccessStore(category.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "category belongs to another store"})
	}
	var req models.Category
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	category.Name = req.Name
	category.Description = req.Description
	if err := h.db.Save(&category).Error; err != nil {
		log.Printf("❌ [CATALOG] Update category %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update category"})
	}
	return c.JSON(fiber.Map{"category": category})
}

func (h *Handler) DeleteCategory(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid category id"})
	}
	var category models.Category
	if err := h.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "category not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch category"})
	}
	if !claims.CanAccessStore(category.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "category belongs to another store"})
	}
	if err := h.db.Delete(&category).Error; err != nil {
		log.Printf("❌ [CATALOG] Delete category %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete category"})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "category deleted"})
}

func (h *Handler) ListProducts(c *fiber.Ctx) error {
	claims := mustClaims(c)
	limit := getQueryInt(c, "limit", 50, 1, 200)
	offset := getQueryInt(c, "offset", 0, 0, 100000)

	tx := scoped(h.db.Order("name ASC").Limit(limit).Offset(offset), scopeStoreID(c, claims))
	if q := c.Query("q"); q != "" {
		like := "%" + q + "%"
		tx = tx.Where("name ILIKE ? OR sku ILIKE ? OR barcode ILIKE ?", like, like, like)
	}
	if categoryID := getQueryInt(c, "category_id", 0, 0, 1<<30); categoryID > 0 {
		tx = tx.Where("category_id = ?", categoryID)
	}

	var products []models.Product
	if err := tx.Find(&products).Error; err != nil {
		log.Printf("❌ [CATALOG] List products failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch products"})
	}
	return c.JSON(fiber.Map{"products": products})
}

func (h *Handler) GetProduct(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	var product models.Product
	if err := h.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch product"})
	}
	if !claims.CanAccessStore(product.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "product belongs to another store"})
	}
	return c.JSON(fiber.Map{"product": product})
}

func (h *Handler) CreateProduct(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if product.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}
	if product.Price < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price cannot be negative"})
	}
	product.ID = 0
	product.Active = activeOrDefault(c)
	if product.StoreID == 0 || !claims.CanAccessStore(product.StoreID) {
		product.StoreID = claims.StoreID
	}
	if err := h.db.Create(&product).Error; err != nil {
		log.Printf("❌ [CATALOG] Create product failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create product"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"product": product})
}

func (h *Handler) UpdateProduct(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	var product models.Product
	if err := h.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch product"})
	}
	if !claims.CanAccessStore(product.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "product belongs to another store"})
	}
	var req models.Product
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Price < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price cannot be negative"})
	}
	product.CategoryID = req.CategoryID
	product.Name = req.Name
	product.SKU = req.SKU
	product.Barcode = req.Barcode
	product.Description = req.Description
	product.Price = req.Price
	product.Cost = req.Cost
	product.Stock = req.Stock
	product.Active = req.Active
	if req.ImageURL != "" {
		product.ImageURL = req.ImageURL
	}
	if err := h.db.Save(&product).Error; err != nil {
		log.Printf("❌ [CATALOG] Update product %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update product"})
	}
	return c.JSON(fiber.Map{"product": product})
}

func (h *Handler) DeleteProduct(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	var product models.Product
	if err := h.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch product"})
	}
	if !claims.CanAccessStore(product.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "product belongs to another store"})
	}
	if err := h.db.Delete(&product).Error; err != nil {
		log.Printf("❌ [CATALOG] Delete product %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete product"})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "product deleted"})
}

// UploadProductImage stores a multipart image for a product and persists
// the public URL.
func (h *Handler) UploadProductImage(c *fiber.Ctx) error {
	claims := mustClaims(c)
	if h.r2Client == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "image storage not configured"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	var product models.Product
	if err := h.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch product"})
	}
	if !claims.CanAccessStore(product.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "product belongs to another store"})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read uploaded file"})
	}
	defer file.Close()

	url, err := h.r2Client.UploadProductImage(c.Context(), file, fileHeader.Filename, product.SyncID)
	if err != nil {
		log.Printf("❌ [CATALOG] Image upload for product %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "image upload failed"})
	}

	previousURL := product.ImageURL
	product.ImageURL = url
	if err := h.db.Save(&product).Error; err != nil {
		log.Printf("❌ [CATALOG] Persist image URL for product %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update product"})
	}

	// Best-effort cleanup of the replaced object.
	if previousURL != "" && previousURL != url {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.r2Client.DeleteProductImage(ctx, previousURL); err != nil {
				log.Printf("⚠️ [CATALOG] Could not delete replaced image for product %d: %v", id, err)
			}
		}()
	}

	log.Printf("🖼️ [CATALOG] Product %d image updated: %s", id, url)
	return c.JSON(fiber.Map{"product": product, "imageUrl": url})
}
