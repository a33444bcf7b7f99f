// internal/transport/http/handlers.go
package http

import (
	"strconv"

	"pos-service/internal/auth"
	"pos-service/internal/config"
	"pos-service/internal/email"
	"pos-service/internal/middleware"
	"pos-service/internal/sync"
	"pos-service/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handler struct {
	db       *gorm.DB
	cfg      *config.Config
	syncSvc  *sync.Service
	email    *email.Sender
	r2Client *utils.ProductR2Client
}

func NewHandler(db *gorm.DB, cfg *config.Config, syncSvc *sync.Service, sender *email.Sender, r2 *utils.ProductR2Client) *Handler {
	return &Handler{db: db, cfg: cfg, syncSvc: syncSvc, email: sender, r2Client: r2}
}

// RegisterRoutes wires the authenticated API surface. Every route past the
// bearer check declares the single permission it needs; an administrative
// claim passes all of them.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/auth/login", h.Login)

	api.Use(middleware.BearerAuth(h.cfg.JWTSecret))
	api.Get("/auth/me", h.Me)

	stores := api.Group("/stores")
	stores.Get("/", middleware.RequirePermission(auth.PermStoresView), h.ListStores)
	stores.Get("/:id", middleware.RequirePermission(auth.PermStoresView), h.GetStore)
	stores.Post("/", middleware.RequirePermission(auth.PermStoresManage), h.CreateStore)
	stores.Put("/:id", middleware.RequirePermission(auth.PermStoresManage), h.UpdateStore)
	stores.Delete("/:id", middleware.RequirePermission(auth.PermStoresManage), h.DeleteStore)

	roles := api.Group("/roles")
	roles.Get("/", middleware.RequirePermission(auth.PermRolesView), h.ListRoles)
	roles.Get("/:id", middleware.RequirePermission(auth.PermRolesView), h.GetRole)
	roles.Post("/", middleware.RequirePermission(auth.PermRolesManage), h.CreateRole)
	roles.Put("/:id", middleware.RequirePermission(auth.PermRolesManage), h.UpdateRole)
	roles.Delete("/:id", middleware.RequirePermission(auth.PermRolesManage), h.DeleteRole)

	users := api.Group("/users")
	users.Get("/", middleware.RequirePermission(auth.PermUsersView), h.ListUsers)
	users.Get("/:id", middleware.RequirePermission(auth.PermUsersView), h.GetUser)
	users.Post("/", middleware.RequirePermission(auth.PermUsersManage), h.CreateUser)
	users.Put("/:id", middleware.RequirePermission(auth.PermUsersManage), h.UpdateUser)
	users.Delete("/:id", middleware.RequirePermission(auth.PermUsersManage), h.DeleteUser)

	categories := api.Group("/categories")
	categories.Get("/", middleware.RequirePermission(auth.PermCategoriesView), h.ListCategories)
	categories.Get("/:id", middleware.RequirePermission(auth.PermCategoriesView), h.GetCategory)
	categories.Post("/", middleware.RequirePermission(auth.PermCategoriesManage), h.CreateCategory)
	categories.Put("/:id", middleware.RequirePermission(auth.PermCategoriesManage), h.UpdateCategory)
	categories.Delete("/:id", middleware.RequirePermission(auth.PermCategoriesManage), h.DeleteCategory)

	products := api.Group("/products")
	products.Get("/", middleware.RequirePermission(auth.PermProductsView), h.ListProducts)
	products.Get("/:id", middleware.RequirePermission(auth.PermProductsView), h.GetProduct)
	products.Post("/", middleware.RequirePermission(auth.PermProductsManage), h.CreateProduct)
	products.Put("/:id", middleware.RequirePermission(auth.PermProductsManage), h.UpdateProduct)
	products.Delete("/:id", middleware.RequirePermission(auth.PermProductsManage), h.DeleteProduct)
	products.Post("/:id/image", middleware.RequirePermission(auth.PermProductsManage), h.UploadProductImage)

	promotions := api.Group("/promotions")
	promotions.Get("/", middleware.RequirePermission(auth.PermPromotionsView), h.ListPromotions)
	promotions.Get("/:id", middleware.RequirePermission(auth.PermPromotionsView), h.GetPromotion)
	promotions.Post("/", middleware.RequirePermission(auth.PermPromotionsManage), h.CreatePromotion)
	promotions.Put("/:id", middleware.RequirePermission(auth.PermPromotionsManage), h.UpdatePromotion)
	promotions.Delete("/:id", middleware.RequirePermission(auth.PermPromotionsManage), h.DeletePromotion)

	sales := api.Group("/sales")
	sales.Get("/", middleware.RequirePermission(auth.PermSalesView), h.ListSales)
	sales.Get("/:id", middleware.RequirePermission(auth.PermSalesView), h.GetSale)
	sales.Post("/", middleware.RequirePermission(auth.PermSalesManage), h.CreateSale)
	sales.Put("/:id", middleware.RequirePermission(auth.PermSalesManage), h.UpdateSale)
	sales.Delete("/:id", middleware.RequirePermission(auth.PermSalesManage), h.DeleteSale)
	sales.Post("/:id/receipt", middleware.RequirePermission(auth.PermSalesView), h.EmailReceipt)

	payments := api.Group("/payments")
	payments.Get("/", middleware.RequirePermission(auth.PermPaymentsView), h.ListPayments)
	payments.Get("/:id", middleware.RequirePermission(auth.PermPaymentsView), h.GetPayment)
	payments.Post("/", middleware.RequirePermission(auth.PermPaymentsManage), h.CreatePayment)
	payments.Put("/:id", middleware.RequirePermission(auth.PermPaymentsManage), h.UpdatePayment)
	payments.Delete("/:id", middleware.RequirePermission(auth.PermPaymentsManage), h.DeletePayment)

	devices := api.Group("/devices")
	devices.Post("/fcm-token", h.RegisterDeviceToken)
	devices.Delete("/fcm-token", h.UnregisterDeviceToken)

	h.registerSyncRoutes(api)
}

// activeOrDefault re-reads the request's "active" field so a record
// created without one starts active, while an explicit false sticks.
func activeOrDefault(c *fiber.Ctx) bool {
	var body struct {
		Active *bool `json:"active"`
	}
	if err := c.BodyParser(&body); err != nil || body.Active == nil {
		return true
	}
	return *body.Active
}

// getQueryInt clamps a query-string integer.
func getQueryInt(c *fiber.Ctx, key string, def, min, max int) int {
	s := c.Query(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// parseID reads the :id path parameter.
func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

// scopeStoreID resolves which store a request acts on. Regular users are
// pinned to their own store; administrative callers may pass ?store_id=
// (or omit it for an all-stores view, returned as 0).
func scopeStoreID(c *fiber.Ctx, claims *auth.Claims) uint {
	if !claims.IsAdmin() {
		return claims.StoreID
	}
	if s := c.Query("store_id"); s != "" {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			return uint(v)
		}
	}
	return 0
}

// scoped applies a store filter when storeID is non-zero.
func scoped(tx *gorm.DB, storeID uint) *gorm.DB {
	if storeID != 0 {
		return tx.Where("store_id = ?", storeID)
	}
	return tx
}
