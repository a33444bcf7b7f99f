// internal/transport/http/sync.go
package http

import (
	"errors"
	"log"

	"pos-service/internal/auth"
	"pos-service/internal/middleware"
	"pos-service/internal/sync"
	"pos-service/pkg/models"

	"github.com/gofiber/fiber/v2"
)

// registerSyncRoutes wires the batch/log tracking endpoints plus the
// per-entity reconciliation endpoints devices push their offline changes
// through.
func (h *Handler) registerSyncRoutes(api fiber.Router) {
	sg := api.Group("/sync")
	sg.Post("/batches", middleware.RequirePermission(auth.PermSyncExecute), h.CreateSyncBatch)
	sg.Get("/batches", middleware.RequirePermission(auth.PermSyncView), h.ListSyncBatches)
	sg.Get("/batches/:id", middleware.RequirePermission(auth.PermSyncView), h.GetSyncBatch)
	sg.Put("/batches/:id/status", middleware.RequirePermission(auth.PermSyncExecute), h.UpdateSyncBatchStatus)
	sg.Post("/changes", middleware.RequirePermission(auth.PermSyncExecute), h.RecordSyncChange)
	sg.Get("/logs", middleware.RequirePermission(auth.PermSyncView), h.ListSyncLogs)
	sg.Post("/logs", middleware.RequirePermission(auth.PermSyncExecute), h.CreateSyncLog)
	sg.Put("/logs/:id/status", middleware.RequirePermission(auth.PermSyncExecute), h.UpdateSyncLogStatus)
	sg.Get("/pending", middleware.RequirePermission(auth.PermSyncView), h.PendingSyncCounts)

	registerEntitySync[models.Store](h, api, "/stores", auth.PermStoresManage, auth.PermStoresView)
	registerEntitySync[models.Role](h, api, "/roles", auth.PermRolesManage, auth.PermRolesView)
	registerEntitySync[models.Category](h, api, "/categories", auth.PermCategoriesManage, auth.PermCategoriesView)
	registerEntitySync[models.Product](h, api, "/products", auth.PermProductsManage, auth.PermProductsView)
	registerEntitySync[models.Promotion](h, api, "/promotions", auth.PermPromotionsManage, auth.PermPromotionsView)
	registerEntitySync[models.Sale](h, api, "/sales", auth.PermSalesManage, auth.PermSalesView)
	registerEntitySync[models.Payment](h, api, "/payments", auth.PermPaymentsManage, auth.PermPaymentsView)
}

// registerEntitySync mounts POST <prefix>/sync (push local changes up) and
// GET <prefix>/pending-sync (records still waiting) for one entity type.
func registerEntitySync[T any, P interface {
	*T
	models.Syncable
}](h *Handler, api fiber.Router, prefix, managePerm, viewPerm string) {
	api.Post(prefix+"/sync", middleware.RequirePermission(managePerm), func(c *fiber.Ctx) error {
		claims := mustClaims(c)

		var items []T
		if err := c.BodyParser(&items); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body: expected an array"})
		}
		if len(items) == 0 {
			return c.JSON(fiber.Map{"processed": []T{}, "failedCount": 0})
		}

		storeID := claims.StoreID
		if claims.IsAdmin() {
			storeID = scopeStoreID(c, claims)
		}

		processed, failedCount := sync.Reconcile[T, P](c.Context(), h.db, storeID, items)
		if failedCount > 0 {
			log.Printf("⚠️ [SYNC] %s push: %d/%d items failed (store=%d)",
				prefix, failedCount, len(items), storeID)
		}

		// Partial failure is still a 200: the caller inspects failedCount
		// and retries only what is missing from processed.
		return c.JSON(fiber.Map{
			"processed":   processed,
			"failedCount": failedCount,
		})
	})

	api.Get(prefix+"/pending-sync", middleware.RequirePermission(viewPerm), func(c *fiber.Ctx) error {
		claims := mustClaims(c)
		var probe T
		storeScoped := P(&probe).StoreScoped()

		pending, err := sync.PendingFor[T](c.Context(), h.db, scopeStoreID(c, claims), storeScoped)
		if err != nil {
			log.Printf("❌ [SYNC] %s pending-sync failed: %v", prefix, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch pending records"})
		}
		return c.JSON(fiber.Map{"pending": pending})
	})
}

func (h *Handler) CreateSyncBatch(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var req struct {
		DeviceID     string `json:"deviceId"`
		StoreID      uint   `json:"storeId"`
		TotalRecords int    `json:"totalRecords"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.DeviceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "deviceId required"})
	}
	if req.StoreID == 0 {
		req.StoreID = claims.StoreID
	}
	if !claims.CanAccessStore(req.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not authorized for this store"})
	}

	batch, err := h.syncSvc.CreateBatch(c.Context(), req.DeviceID, claims.UserID, req.StoreID, req.TotalRecords, claims.IsAdmin())
	if err != nil {
		if errors.Is(err, sync.ErrUserNotEligible) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("❌ [SYNC] Create batch failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create sync batch"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"batch": batch})
}

func (h *Handler) ListSyncBatches(c *fiber.Ctx) error {
	claims := mustClaims(c)
	limit := getQueryInt(c, "limit", 50, 1, 200)
	offset := getQueryInt(c, "offset", 0, 0, 100000)

	batches, err := h.syncSvc.ListBatches(c.Context(), scopeStoreID(c, claims), limit, offset)
	if err != nil {
		log.Printf("❌ [SYNC] List batches failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch batches"})
	}
	return c.JSON(fiber.Map{"batches": batches})
}

func (h *Handler) GetSyncBatch(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid batch id"})
	}
	batch, err := h.syncSvc.GetBatch(c.Context(), id)
	if err != nil {
		if errors.Is(err, sync.ErrBatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "batch not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch batch"})
	}
	if !claims.CanAccessStore(batch.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "batch belongs to another store"})
	}
	return c.JSON(fiber.Map{"batch": batch})
}

func (h *Handler) UpdateSyncBatchStatus(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid batch id"})
	}
	var req struct {
		Status           models.BatchStatus `json:"status"`
		ProcessedRecords *int               `json:"processedRecords"`
		FailedRecords    *int               `json:"failedRecords"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	switch req.Status {
	case models.BatchStatusPending, models.BatchStatusInProgress, models.BatchStatusCompleted, models.BatchStatusFailed:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown status"})
	}

	batch, err := h.syncSvc.GetBatch(c.Context(), id)
	if err != nil {
		if errors.Is(err, sync.ErrBatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "batch not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch batch"})
	}
	if !claims.CanAccessStore(batch.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "batch belongs to another store"})
	}

	batch, err = h.syncSvc.UpdateBatchStatus(c.Context(), id, req.Status, req.ProcessedRecords, req.FailedRecords)
	if err != nil {
		log.Printf("❌ [SYNC] Update batch %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update batch"})
	}
	return c.JSON(fiber.Map{"batch": batch})
}

func (h *Handler) RecordSyncChange(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var req sync.ChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.BatchID == 0 || req.EntityName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "batchId and entityName required"})
	}

	result, err := h.syncSvc.RecordChange(c.Context(), req, claims.StoreID, claims.IsAdmin())
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrBatchNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "batch not found"})
		case errors.Is(err, sync.ErrWrongStore):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "batch belongs to another store"})
		default:
			log.Printf("❌ [SYNC] Record change failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to record change"})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"result": result})
}

func (h *Handler) ListSyncLogs(c *fiber.Ctx) error {
	claims := mustClaims(c)
	limit := getQueryInt(c, "limit", 50, 1, 200)
	offset := getQueryInt(c, "offset", 0, 0, 100000)

	logs, err := h.syncSvc.ListLogs(c.Context(), scopeStoreID(c, claims), limit, offset)
	if err != nil {
		log.Printf("❌ [SYNC] List logs failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch logs"})
	}
	return c.JSON(fiber.Map{"logs": logs})
}

func (h *Handler) CreateSyncLog(c *fiber.Ctx) error {
	claims := mustClaims(c)
	var entry models.SyncLog
	if err := c.BodyParser(&entry); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if entry.EntityName == "" || entry.EntityID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "entityName and entityId required"})
	}
	entry.ID = 0
	entry.UserID = claims.UserID
	if entry.StoreID == 0 || !claims.CanAccessStore(entry.StoreID) {
		entry.StoreID = claims.StoreID
	}

	if err := h.syncSvc.CreateLog(c.Context(), &entry); err != nil {
		log.Printf("❌ [SYNC] Create log failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create log"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"log": entry})
}

func (h *Handler) UpdateSyncLogStatus(c *fiber.Ctx) error {
	claims := mustClaims(c)
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid log id"})
	}
	var req struct {
		Status       models.SyncStatus `json:"status"`
		ErrorMessage string            `json:"errorMessage"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	switch req.Status {
	case models.SyncStatusNotSynced, models.SyncStatusSyncing, models.SyncStatusSynced, models.SyncStatusFailed:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown status"})
	}

	var existing models.SyncLog
	if err := h.db.First(&existing, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "log not found"})
	}
	if !claims.CanAccessStore(existing.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "log belongs to another store"})
	}

	entry, err := h.syncSvc.UpdateLogStatus(c.Context(), id, req.Status, req.ErrorMessage)
	if err != nil {
		if errors.Is(err, sync.ErrLogNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "log not found"})
		}
		log.Printf("❌ [SYNC] Update log %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update log"})
	}
	return c.JSON(fiber.Map{"log": entry})
}

func (h *Handler) PendingSyncCounts(c *fiber.Ctx) error {
	claims := mustClaims(c)
	counts, err := h.syncSvc.PendingCounts(c.Context(), scopeStoreID(c, claims))
	if err != nil {
		log.Printf("❌ [SYNC] Pending counts failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to aggregate pending records"})
	}
	return c.JSON(fiber.Map{"pending": counts})
}
