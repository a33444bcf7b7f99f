package sync

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"pos-service/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// setupTestDB opens a process-private sqlite database. The shared cache
// keeps the pool's connections on the same in-memory store.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:synctest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Store{}, &models.Role{}, &models.User{}, &models.DeviceToken{},
		&models.Category{}, &models.Product{}, &models.Promotion{},
		&models.Sale{}, &models.Payment{},
		&models.SyncBatch{}, &models.SyncLog{},
	))
	return db
}

func TestReconcileCreatesUnknownRecord(t *testing.T) {
	db := setupTestDB(t)
	syncID := uuid.New()

	items := []models.Product{{
		SyncFields: models.SyncFields{SyncID: syncID},
		Name:       "Widget",
		Price:      9.99,
	}}

	processed, failed := Reconcile[models.Product, *models.Product](context.Background(), db, 1, items)
	require.Len(t, processed, 1)
	assert.Zero(t, failed)

	var stored models.Product
	require.NoError(t, db.Where("sync_id = ?", syncID).First(&stored).Error)
	assert.Equal(t, "Widget", stored.Name)
	assert.Equal(t, uint(1), stored.StoreID)
	assert.Equal(t, models.SyncStatusSynced, stored.SyncStatus)
	assert.NotZero(t, stored.ID)
}

func TestReconcileKeepsInactiveFlag(t *testing.T) {
	db := setupTestDB(t)
	syncID := uuid.New()

	// Devices sync deactivated products too; the stored row must not
	// come back active.
	items := []models.Product{{
		SyncFields: models.SyncFields{SyncID: syncID},
		Name:       "Retired widget",
		Active:     false,
	}}

	processed, failed := Reconcile[models.Product, *models.Product](context.Background(), db, 1, items)
	require.Len(t, processed, 1)
	assert.Zero(t, failed)

	var stored models.Product
	require.NoError(t, db.Where("sync_id = ?", syncID).First(&stored).Error)
	assert.False(t, stored.Active)
}

func TestReconcileOverwritesByStableID(t *testing.T) {
	db := setupTestDB(t)
	syncID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	seed := models.Product{
		SyncFields: models.SyncFields{SyncID: syncID},
		StoreRef:   models.StoreRef{StoreID: 1},
		Name:       "Widget",
		Price:      9.99,
	}
	require.NoError(t, db.Create(&seed).Error)

	// The device resends the record with its own (wrong) numeric id.
	items := []models.Product{{
		Base:       models.Base{ID: 999},
		SyncFields: models.SyncFields{SyncID: syncID},
		Name:       "Widget v2",
		Price:      12.50,
	}}

	processed, failed := Reconcile[models.Product, *models.Product](context.Background(), db, 1, items)
	require.Len(t, processed, 1)
	assert.Zero(t, failed)

	// Server identity wins: same row, same created-at, new payload fields.
	assert.Equal(t, seed.ID, processed[0].ID)
	assert.Equal(t, syncID, processed[0].SyncID)
	assert.Equal(t, "Widget v2", processed[0].Name)
	assert.Equal(t, 12.50, processed[0].Price)

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestReconcileStableIDBeatsNumericID(t *testing.T) {
	db := setupTestDB(t)
	idA := uuid.New()
	idB := uuid.New()

	recordA := models.Product{SyncFields: models.SyncFields{SyncID: idA}, StoreRef: models.StoreRef{StoreID: 1}, Name: "A"}
	recordB := models.Product{SyncFields: models.SyncFields{SyncID: idB}, StoreRef: models.StoreRef{StoreID: 1}, Name: "B"}
	require.NoError(t, db.Create(&recordA).Error)
	require.NoError(t, db.Create(&recordB).Error)

	// Payload carries B's stable id but A's numeric id: stable id wins.
	items := []models.Product{{
		Base:       models.Base{ID: recordA.ID},
		SyncFields: models.SyncFields{SyncID: idB},
		Name:       "B updated",
	}}

	processed, failed := Reconcile[models.Product, *models.Product](context.Background(), db, 1, items)
	require.Len(t, processed, 1)
	assert.Zero(t, failed)
	assert.Equal(t, recordB.ID, processed[0].ID)

	var a models.Product
	require.NoError(t, db.First(&a, recordA.ID).Error)
	assert.Equal(t, "A", a.Name)
}

func TestReconcileFallsBackToNumericID(t *testing.T) {
	db := setupTestDB(t)

	seed := models.Product{
		SyncFields: models.SyncFields{SyncID: uuid.New()},
		StoreRef:   models.StoreRef{StoreID: 1},
		Name:       "Legacy",
	}
	require.NoError(t, db.Create(&seed).Error)

	// Unknown stable id, known numeric id: matches the stored row and the
	// stored stable id is kept.
	payloadSyncID := uuid.New()
	items := []models.Product{{
		Base:       models.Base{ID: seed.ID},
		SyncFields: models.SyncFields{SyncID: payloadSyncID},
		Name:       "Legacy renamed",
	}}

	processed, failed := Reconcile[models.Product, *models.Product](context.Background(), db, 1, items)
	require.Len(t, processed, 1)
	assert.Zero(t, failed)
	assert.Equal(t, seed.ID, processed[0].ID)
	assert.Equal(t, seed.SyncID, processed[0].SyncID, "stored stable id is immutable")
	assert.Equal(t, "Legacy renamed", processed[0].Name)
}

func TestReconcileSkipsEmptyStableID(t *testing.T) {
	db := setupTestDB(t)

	items := []models.Product{
		{SyncFields: models.SyncFields{SyncID: uuid.Nil}, Name: "no id"},
		{SyncFields: models.SyncFields{SyncID: uuid.New()}, Name: "ok"},
	}

	processed, failed := Reconcile[models.Product, *models.Product](context.Background(), db, 1, items)
	// The bad item is counted and skipped; the rest of the batch proceeds.
	assert.Equal(t, 1, failed)
	require.Len(t, processed, 1)
	assert.Equal(t, "ok", processed[0].Name)
}

func TestReconcileScopesLookupToStore(t *testing.T) {
	db := setupTestDB(t)
	syncID := uuid.New()

	other := models.Product{
		SyncFields: models.SyncFields{SyncID: uuid.New()},
		StoreRef:   models.StoreRef{StoreID: 2},
		Name:       "Elsewhere",
	}
	require.NoError(t, db.Create(&other).Error)

	// Same numeric id as the other store's record, but the caller's store
	// has no match: a fresh record is created rather than overwriting
	// another store's row.
	items := []models.Product{{
		Base:       models.Base{ID: other.ID},
		SyncFields: models.SyncFields{SyncID: syncID},
		Name:       "Mine",
	}}

	processed, failed := Reconcile[models.Product, *models.Product](context.Background(), db, 1, items)
	require.Len(t, processed, 1)
	assert.Zero(t, failed)
	assert.NotEqual(t, other.ID, processed[0].ID)
	assert.Equal(t, uint(1), processed[0].StoreID)

	var untouched models.Product
	require.NoError(t, db.First(&untouched, other.ID).Error)
	assert.Equal(t, "Elsewhere", untouched.Name)
	assert.Equal(t, uint(2), untouched.StoreID)
}

func TestReconcileGlobalEntityIgnoresStore(t *testing.T) {
	db := setupTestDB(t)
	syncID := uuid.New()

	items := []models.Store{{
		SyncFields: models.SyncFields{SyncID: syncID},
		Name:       "Branch North",
	}}

	processed, failed := Reconcile[models.Store, *models.Store](context.Background(), db, 5, items)
	require.Len(t, processed, 1)
	assert.Zero(t, failed)

	var stored models.Store
	require.NoError(t, db.Where("sync_id = ?", syncID).First(&stored).Error)
	assert.Equal(t, "Branch North", stored.Name)
}

func TestPendingFor(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Create(&models.Product{
		SyncFields: models.SyncFields{SyncID: uuid.New(), SyncStatus: models.SyncStatusNotSynced},
		StoreRef:   models.StoreRef{StoreID: 1},
		Name:       "pending",
	}).Error)
	require.NoError(t, db.Create(&models.Product{
		SyncFields: models.SyncFields{SyncID: uuid.New(), SyncStatus: models.SyncStatusSynced},
		StoreRef:   models.StoreRef{StoreID: 1},
		Name:       "done",
	}).Error)
	require.NoError(t, db.Create(&models.Product{
		SyncFields: models.SyncFields{SyncID: uuid.New(), SyncStatus: models.SyncStatusNotSynced},
		StoreRef:   models.StoreRef{StoreID: 2},
		Name:       "other store",
	}).Error)

	pending, err := PendingFor[models.Product](context.Background(), db, 1, true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "pending", pending[0].Name)

	all, err := PendingFor[models.Product](context.Background(), db, 0, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
