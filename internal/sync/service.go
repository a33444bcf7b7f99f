// internal/sync/service.go
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pos-service/pkg/models"

	"gorm.io/gorm"
)

var (
	ErrBatchNotFound   = errors.New("sync batch not found")
	ErrLogNotFound     = errors.New("sync log not found")
	ErrUserNotEligible = errors.New("user is not active in this store")
	ErrWrongStore      = errors.New("batch belongs to a different store")
)

// Lifecycle event types handed to the Notifier alongside their payload.
const (
	EventBatchCreated  = "batch-created"
	EventBatchUpdated  = "batch-updated"
	EventLogUpdated    = "log-updated"
	EventSyncRequested = "sync-requested"
)

// Notifier pushes sync lifecycle events to a store's connected clients.
// Delivery is fire-and-forget: a failed notification never rolls back the
// underlying state change.
type Notifier interface {
	Publish(storeID uint, eventType string, data interface{})
}

// Service owns sync batches, sync logs, and the pending-sync aggregates.
type Service struct {
	db       *gorm.DB
	notifier Notifier
}

func NewService(db *gorm.DB, notifier Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

// ChangeRequest is one entity-mutation announcement from a device.
type ChangeRequest struct {
	BatchID     uint                 `json:"batchId"`
	EntityName  string               `json:"entityName"`
	EntityID    string               `json:"entityId"`
	Operation   models.SyncOperation `json:"operation"`
	OperationAt time.Time            `json:"operationAt"`
	DeviceID    string               `json:"deviceId"`
	Priority    int                  `json:"priority"`
}

// ChangeResult reports how one announced change was recorded.
type ChangeResult struct {
	LogID      uint              `json:"logId"`
	EntityName string            `json:"entityName"`
	EntityID   string            `json:"entityId"`
	Status     models.SyncStatus `json:"status"`
}

// CreateBatch opens a sync session for a device. The user must be active
// and belong to (or administer) the store.
func (s *Service) CreateBatch(ctx context.Context, deviceID string, userID, storeID uint, totalRecords int, adminOverride bool) (*models.SyncBatch, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotEligible
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrUserNotEligible
	}
	if user.StoreID != storeID && !adminOverride {
		return nil, ErrUserNotEligible
	}

	batch := &models.SyncBatch{
		DeviceID:     deviceID,
		UserID:       userID,
		StoreID:      storeID,
		Status:       models.BatchStatusInProgress,
		StartedAt:    time.Now().UTC(),
		TotalRecords: totalRecords,
	}
	if err := s.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, fmt.Errorf("create sync batch: %w", err)
	}

	log.Printf("🔄 [SYNC] Batch %d started (device=%s store=%d total=%d)",
		batch.ID, deviceID, storeID, totalRecords)
	s.notifier.Publish(storeID, EventBatchCreated, batch)
	return batch, nil
}

// GetBatch loads one batch.
func (s *Service) GetBatch(ctx context.Context, batchID uint) (*models.SyncBatch, error) {
	var batch models.SyncBatch
	if err := s.db.WithContext(ctx).First(&batch, batchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// ListBatches returns a store's batches, newest first.
func (s *Service) ListBatches(ctx context.Context, storeID uint, limit, offset int) ([]models.SyncBatch, error) {
	var batches []models.SyncBatch
	tx := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Offset(offset)
	if storeID != 0 {
		tx = tx.Where("store_id = ?", storeID)
	}
	err := tx.Find(&batches).Error
	return batches, err
}

// UpdateBatchStatus applies the caller's status and counters. Transitions
// are not validated (callers are trusted, matching the source behavior);
// a terminal status stamps the end time.
func (s *Service) UpdateBatchStatus(ctx context.Context, batchID uint, status models.BatchStatus, processed, failed *int) (*models.SyncBatch, error) {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	batch.Status = status
	if processed != nil {
		batch.ProcessedRecords = *processed
	}
	if failed != nil {
		batch.FailedRecords = *failed
	}
	if status.Terminal() && batch.EndedAt == nil {
		now := time.Now().UTC()
		batch.EndedAt = &now
	}

	if err := s.db.WithContext(ctx).Save(batch).Error; err != nil {
		return nil, fmt.Errorf("update sync batch %d: %w", batchID, err)
	}

	s.notifier.Publish(batch.StoreID, EventBatchUpdated, batch)
	return batch, nil
}

// CompleteBatch finalizes a batch from the realtime channel.
func (s *Service) CompleteBatch(ctx context.Context, batchID uint) (*models.SyncBatch, error) {
	return s.UpdateBatchStatus(ctx, batchID, models.BatchStatusCompleted, nil, nil)
}

// RecordChange logs one announced entity mutation against a batch: the log
// entry goes Syncing then Synced, and the batch's processed counter moves.
// The batch must belong to callerStoreID unless the caller has the
// administrative override.
func (s *Service) RecordChange(ctx context.Context, req ChangeRequest, callerStoreID uint, adminOverride bool) (*ChangeResult, error) {
	batch, err := s.GetBatch(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if batch.StoreID != callerStoreID && !adminOverride {
		return nil, ErrWrongStore
	}

	operationAt := req.OperationAt
	if operationAt.IsZero() {
		operationAt = time.Now().UTC()
	}

	entry := &models.SyncLog{
		EntityName:  req.EntityName,
		EntityID:    req.EntityID,
		Operation:   req.Operation,
		OperationAt: operationAt,
		DeviceID:    req.DeviceID,
		UserID:      batch.UserID,
		StoreID:     batch.StoreID,
		Status:      models.SyncStatusSyncing,
		BatchID:     &batch.ID,
		Priority:    req.Priority,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("create sync log: %w", err)
	}

	now := time.Now().UTC()
	entry.Status = models.SyncStatusSynced
	entry.CompletedAt = &now
	if err := s.db.WithContext(ctx).Save(entry).Error; err != nil {
		// The log stays Syncing; the failure still counts against the batch.
		log.Printf("❌ [SYNC] Failed to finalize log %d: %v", entry.ID, err)
		s.bumpBatchCounter(ctx, batch, "failed_records")
		return nil, err
	}

	s.bumpBatchCounter(ctx, batch, "processed_records")
	s.notifier.Publish(batch.StoreID, EventLogUpdated, entry)

	return &ChangeResult{
		LogID:      entry.ID,
		EntityName: entry.EntityName,
		EntityID:   entry.EntityID,
		Status:     entry.Status,
	}, nil
}

func (s *Service) bumpBatchCounter(ctx context.Context, batch *models.SyncBatch, column string) {
	if err := s.db.WithContext(ctx).Model(batch).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error; err != nil {
		log.Printf("⚠️ [SYNC] Failed to bump %s on batch %d: %v", column, batch.ID, err)
		return
	}
	var fresh models.SyncBatch
	if err := s.db.WithContext(ctx).First(&fresh, batch.ID).Error; err == nil {
		s.notifier.Publish(fresh.StoreID, EventBatchUpdated, &fresh)
	}
}

// CreateLog queues a standalone audit entry outside any batch.
func (s *Service) CreateLog(ctx context.Context, entry *models.SyncLog) error {
	if entry.Status == "" {
		entry.Status = models.SyncStatusNotSynced
	}
	if entry.OperationAt.IsZero() {
		entry.OperationAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create sync log: %w", err)
	}
	s.notifier.Publish(entry.StoreID, EventLogUpdated, entry)
	return nil
}

// ListLogs returns a store's log entries, newest first.
func (s *Service) ListLogs(ctx context.Context, storeID uint, limit, offset int) ([]models.SyncLog, error) {
	var logs []models.SyncLog
	tx := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Offset(offset)
	if storeID != 0 {
		tx = tx.Where("store_id = ?", storeID)
	}
	err := tx.Find(&logs).Error
	return logs, err
}

// UpdateLogStatus moves a log entry to a new status. Synced stamps the
// completion time; Failed records the error and increments the
// operator-visible retry counter (nothing re-attempts automatically).
func (s *Service) UpdateLogStatus(ctx context.Context, logID uint, status models.SyncStatus, errorMessage string) (*models.SyncLog, error) {
	var entry models.SyncLog
	if err := s.db.WithContext(ctx).First(&entry, logID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}

	entry.Status = status
	switch status {
	case models.SyncStatusSynced:
		now := time.Now().UTC()
		entry.CompletedAt = &now
		entry.ErrorMessage = nil
	case models.SyncStatusFailed:
		entry.RetryCount++
		if errorMessage != "" {
			entry.ErrorMessage = &errorMessage
		}
	}

	if err := s.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return nil, fmt.Errorf("update sync log %d: %w", logID, err)
	}

	s.notifier.Publish(entry.StoreID, EventLogUpdated, &entry)
	return &entry, nil
}

// PendingCounts aggregates NotSynced records per entity for a store
// (storeID 0 means all stores, for administrative callers).
func (s *Service) PendingCounts(ctx context.Context, storeID uint) (map[string]int64, error) {
	counts := make(map[string]int64)

	scopedCount := func(model interface{}, name string, storeScoped bool) error {
		var n int64
		tx := s.db.WithContext(ctx).Model(model).
			Where("sync_status = ?", models.SyncStatusNotSynced)
		if storeScoped && storeID != 0 {
			tx = tx.Where("store_id = ?", storeID)
		}
		if err := tx.Count(&n).Error; err != nil {
			return err
		}
		counts[name] = n
		return nil
	}

	type pending struct {
		model       interface{}
		name        string
		storeScoped bool
	}
	for _, p := range []pending{
		{&models.Store{}, "stores", false},
		{&models.Role{}, "roles", false},
		{&models.Category{}, "categories", true},
		{&models.Product{}, "products", true},
		{&models.Promotion{}, "promotions", true},
		{&models.Sale{}, "sales", true},
		{&models.Payment{}, "payments", true},
	} {
		if err := scopedCount(p.model, p.name, p.storeScoped); err != nil {
			return nil, err
		}
	}
	return counts, nil
}
