// internal/sync/reconciler.go
package sync

import (
	"context"
	"errors"
	"log"

	"pos-service/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reconcile merges client-side change payloads into server state and
// returns the canonical records plus a failed count. The loop is
// deliberately non-transactional: each item commits on its own, so a batch
// may partially succeed and a per-item failure never aborts the rest.
//
// Lookup order per item: stable identifier first, then the supplied
// numeric identifier. The stable identifier always wins the tie because
// numeric identifiers can collide across devices that created records
// independently offline.
func Reconcile[T any, P interface {
	*T
	models.Syncable
}](ctx context.Context, db *gorm.DB, storeID uint, items []T) ([]T, int) {
	processed := make([]T, 0, len(items))
	failed := 0

	for i := range items {
		item := P(&items[i])
		if item.GetSyncID() == uuid.Nil {
			log.Printf("⚠️ [SYNC] Skipping %s payload with empty stable id", item.EntityName())
			failed++
			continue
		}
		if err := reconcileOne[T, P](ctx, db, storeID, &items[i]); err != nil {
			log.Printf("❌ [SYNC] Failed to reconcile %s %s: %v",
				item.EntityName(), item.GetSyncID(), err)
			failed++
			continue
		}
		processed = append(processed, items[i])
	}

	return processed, failed
}

func reconcileOne[T any, P interface {
	*T
	models.Syncable
}](ctx context.Context, db *gorm.DB, storeID uint, in *T) error {
	item := P(in)

	scoped := func(tx *gorm.DB) *gorm.DB {
		if item.StoreScoped() && storeID != 0 {
			return tx.Where("store_id = ?", storeID)
		}
		return tx
	}

	var existing T
	found := P(&existing)

	err := scoped(db.WithContext(ctx)).Where("sync_id = ?", item.GetSyncID()).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && item.GetID() > 0 {
		err = scoped(db.WithContext(ctx)).Where("id = ?", item.GetID()).First(&existing).Error
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		item.SetID(0)
		if item.StoreScoped() && storeID != 0 {
			item.SetStoreID(storeID)
		}
		item.SetSyncStatus(models.SyncStatusSynced)
		return db.WithContext(ctx).Create(in).Error
	}
	if err != nil {
		return err
	}

	// Overwrite mutable fields, keep the server identity. A stored stable
	// id is immutable; a record matched by numeric id that never had one
	// adopts the payload's.
	item.SetID(found.GetID())
	item.SetCreatedAt(found.GetCreatedAt())
	if found.GetSyncID() != uuid.Nil {
		item.SetSyncID(found.GetSyncID())
	}
	if item.StoreScoped() {
		item.SetStoreID(found.GetStoreID())
	}
	item.SetSyncStatus(models.SyncStatusSynced)
	return db.WithContext(ctx).Save(in).Error
}

// PendingFor lists a store's records still waiting to be pushed out.
func PendingFor[T any](ctx context.Context, db *gorm.DB, storeID uint, storeScoped bool) ([]T, error) {
	var out []T
	tx := db.WithContext(ctx).Where("sync_status = ?", models.SyncStatusNotSynced)
	if storeScoped && storeID != 0 {
		tx = tx.Where("store_id = ?", storeID)
	}
	err := tx.Find(&out).Error
	return out, err
}
