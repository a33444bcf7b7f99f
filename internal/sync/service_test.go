package sync

import (
	"context"
	"testing"
	"time"

	"pos-service/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	events []publishedEvent
}

type publishedEvent struct {
	StoreID uint
	Type    string
}

func (n *recordingNotifier) Publish(storeID uint, eventType string, data interface{}) {
	n.events = append(n.events, publishedEvent{StoreID: storeID, Type: eventType})
}

func (n *recordingNotifier) typesFor(storeID uint) []string {
	var out []string
	for _, e := range n.events {
		if e.StoreID == storeID {
			out = append(out, e.Type)
		}
	}
	return out
}

func seedUser(t *testing.T, db *gorm.DB, storeID uint, active bool) *models.User {
	t.Helper()
	role := models.Role{Name: "cashier-" + t.Name()}
	require.NoError(t, db.Create(&role).Error)
	user := models.User{
		Username:     "user-" + t.Name(),
		PasswordHash: "x",
		RoleID:       role.ID,
		StoreID:      storeID,
		Active:       active,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := setupTestDB(t)
	notifier := &recordingNotifier{}
	return NewService(db, notifier), db, notifier
}

func TestCreateBatch(t *testing.T) {
	svc, _, notifier := newTestService(t)
	db := svc.db
	user := seedUser(t, db, 1, true)

	batch, err := svc.CreateBatch(context.Background(), "device-1", user.ID, 1, 10, false)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusInProgress, batch.Status)
	assert.Equal(t, "device-1", batch.DeviceID)
	assert.Equal(t, 10, batch.TotalRecords)
	assert.False(t, batch.StartedAt.IsZero())
	assert.Nil(t, batch.EndedAt)
	assert.Contains(t, notifier.typesFor(1), EventBatchCreated)
}

func TestCreateBatchRejectsInactiveUser(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := seedUser(t, db, 1, false)

	_, err := svc.CreateBatch(context.Background(), "device-1", user.ID, 1, 0, false)
	assert.ErrorIs(t, err, ErrUserNotEligible)
}

func TestCreateBatchRejectsWrongStore(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := seedUser(t, db, 1, true)

	_, err := svc.CreateBatch(context.Background(), "device-1", user.ID, 2, 0, false)
	assert.ErrorIs(t, err, ErrUserNotEligible)

	// The administrative override spans stores.
	batch, err := svc.CreateBatch(context.Background(), "device-1", user.ID, 2, 0, true)
	require.NoError(t, err)
	assert.Equal(t, uint(2), batch.StoreID)
}

func TestUpdateBatchStatusTerminalStampsEndedAt(t *testing.T) {
	svc, db, notifier := newTestService(t)
	user := seedUser(t, db, 1, true)
	batch, err := svc.CreateBatch(context.Background(), "d", user.ID, 1, 5, false)
	require.NoError(t, err)

	processed := 5
	updated, err := svc.UpdateBatchStatus(context.Background(), batch.ID, models.BatchStatusCompleted, &processed, nil)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, updated.Status)
	assert.Equal(t, 5, updated.ProcessedRecords)
	require.NotNil(t, updated.EndedAt)
	assert.Contains(t, notifier.typesFor(1), EventBatchUpdated)
}

func TestUpdateBatchStatusTransitionsAreNotValidated(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := seedUser(t, db, 1, true)
	batch, err := svc.CreateBatch(context.Background(), "d", user.ID, 1, 0, false)
	require.NoError(t, err)

	done, err := svc.UpdateBatchStatus(context.Background(), batch.ID, models.BatchStatusCompleted, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, done.EndedAt)

	// Reopening a completed batch is accepted; only the first terminal
	// stamp is kept.
	reopened, err := svc.UpdateBatchStatus(context.Background(), batch.ID, models.BatchStatusInProgress, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusInProgress, reopened.Status)
	assert.NotNil(t, reopened.EndedAt)
}

func TestUpdateBatchStatusCountersMayExceedTotal(t *testing.T) {
	// Counter consistency is not enforced: a device may announce more
	// changes than it declared up front.
	svc, db, _ := newTestService(t)
	user := seedUser(t, db, 1, true)
	batch, err := svc.CreateBatch(context.Background(), "d", user.ID, 1, 2, false)
	require.NoError(t, err)

	processed := 50
	updated, err := svc.UpdateBatchStatus(context.Background(), batch.ID, models.BatchStatusInProgress, &processed, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, updated.ProcessedRecords)
	assert.Equal(t, 2, updated.TotalRecords)
}

func TestUpdateBatchStatusUnknownBatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.UpdateBatchStatus(context.Background(), 9999, models.BatchStatusCompleted, nil, nil)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestRecordChange(t *testing.T) {
	svc, db, notifier := newTestService(t)
	user := seedUser(t, db, 1, true)
	batch, err := svc.CreateBatch(context.Background(), "d", user.ID, 1, 3, false)
	require.NoError(t, err)

	result, err := svc.RecordChange(context.Background(), ChangeRequest{
		BatchID:    batch.ID,
		EntityName: "product",
		EntityID:   "11111111-1111-1111-1111-111111111111",
		Operation:  models.SyncOpUpdate,
		DeviceID:   "d",
	}, 1, false)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, result.Status)

	var entry models.SyncLog
	require.NoError(t, db.First(&entry, result.LogID).Error)
	assert.Equal(t, "product", entry.EntityName)
	assert.Equal(t, user.ID, entry.UserID)
	require.NotNil(t, entry.CompletedAt)
	assert.Equal(t, 0, entry.RetryCount)

	var fresh models.SyncBatch
	require.NoError(t, db.First(&fresh, batch.ID).Error)
	assert.Equal(t, 1, fresh.ProcessedRecords)
	assert.Contains(t, notifier.typesFor(1), EventLogUpdated)
}

func TestRecordChangeWrongStore(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := seedUser(t, db, 1, true)
	batch, err := svc.CreateBatch(context.Background(), "d", user.ID, 1, 1, false)
	require.NoError(t, err)

	req := ChangeRequest{BatchID: batch.ID, EntityName: "sale", EntityID: "x", Operation: models.SyncOpCreate}

	_, err = svc.RecordChange(context.Background(), req, 2, false)
	assert.ErrorIs(t, err, ErrWrongStore)

	_, err = svc.RecordChange(context.Background(), req, 2, true)
	assert.NoError(t, err)
}

func TestUpdateLogStatusFailedIncrementsRetryCount(t *testing.T) {
	svc, db, _ := newTestService(t)

	entry := &models.SyncLog{
		EntityName:  "sale",
		EntityID:    "abc",
		Operation:   models.SyncOpCreate,
		OperationAt: time.Now().UTC(),
		StoreID:     1,
		Status:      models.SyncStatusSyncing,
	}
	require.NoError(t, db.Create(entry).Error)

	failed, err := svc.UpdateLogStatus(context.Background(), entry.ID, models.SyncStatusFailed, "network unreachable")
	require.NoError(t, err)
	assert.Equal(t, 1, failed.RetryCount)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "network unreachable", *failed.ErrorMessage)
	assert.Nil(t, failed.CompletedAt)

	failed, err = svc.UpdateLogStatus(context.Background(), entry.ID, models.SyncStatusFailed, "still down")
	require.NoError(t, err)
	assert.Equal(t, 2, failed.RetryCount)

	// Success clears the error and stamps completion; the retry counter
	// is history and stays.
	synced, err := svc.UpdateLogStatus(context.Background(), entry.ID, models.SyncStatusSynced, "")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, synced.Status)
	assert.Nil(t, synced.ErrorMessage)
	require.NotNil(t, synced.CompletedAt)
	assert.Equal(t, 2, synced.RetryCount)
}

func TestUpdateLogStatusUnknownLog(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.UpdateLogStatus(context.Background(), 9999, models.SyncStatusSynced, "")
	assert.ErrorIs(t, err, ErrLogNotFound)
}

func TestPendingCounts(t *testing.T) {
	svc, db, _ := newTestService(t)

	require.NoError(t, db.Create(&models.Product{
		StoreRef: models.StoreRef{StoreID: 1},
		Name:     "p1",
	}).Error)
	require.NoError(t, db.Create(&models.Product{
		SyncFields: models.SyncFields{SyncStatus: models.SyncStatusSynced},
		StoreRef:   models.StoreRef{StoreID: 1},
		Name:       "p2",
	}).Error)
	require.NoError(t, db.Create(&models.Sale{
		StoreRef: models.StoreRef{StoreID: 2},
	}).Error)

	counts, err := svc.PendingCounts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["products"])
	assert.Equal(t, int64(0), counts["sales"])

	all, err := svc.PendingCounts(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), all["products"])
	assert.Equal(t, int64(1), all["sales"])
}

func TestListBatchesAndLogsScoping(t *testing.T) {
	svc, db, _ := newTestService(t)
	user1 := seedUser(t, db, 1, true)

	_, err := svc.CreateBatch(context.Background(), "d1", user1.ID, 1, 0, false)
	require.NoError(t, err)
	_, err = svc.CreateBatch(context.Background(), "d2", user1.ID, 2, 0, true)
	require.NoError(t, err)

	store1, err := svc.ListBatches(context.Background(), 1, 50, 0)
	require.NoError(t, err)
	assert.Len(t, store1, 1)

	all, err := svc.ListBatches(context.Background(), 0, 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
