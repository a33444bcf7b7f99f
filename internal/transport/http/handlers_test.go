package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	netHTTP "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pos-service/internal/auth"
	"pos-service/internal/config"
	"pos-service/internal/email"
	"pos-service/internal/sync"
	"pos-service/pkg/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

type noopNotifier struct{}

func (noopNotifier) Publish(storeID uint, eventType string, data interface{}) {}

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:httptest%d?mode=memory&cache=shared", testDBSeq.Add(1))
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

	cfg := &config.Config{
		JWTSecret:   "test-secret",
		TokenTTLMin: 60,
	}
	syncSvc := sync.NewService(db, noopNotifier{})
	handler := NewHandler(db, cfg, syncSvc, email.NewSender(cfg), nil)

	app := fiber.New()
	handler.RegisterRoutes(app)

	return &testEnv{app: app, db: db, cfg: cfg}
}

func (e *testEnv) seedUser(t *testing.T, username string, storeID uint, permissions []string) *models.User {
	t.Helper()
	role := models.Role{Name: "role-" + username}
	require.NoError(t, role.SetPermissionList(permissions))
	require.NoError(t, e.db.Create(&role).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		StoreID:      storeID,
		Active:       true,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return &user
}

func (e *testEnv) tokenFor(t *testing.T, user *models.User, permissions []string) string {
	t.Helper()
	token, err := auth.GenerateToken(e.cfg.JWTSecret, time.Hour, user, permissions)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *netHTTP.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *netHTTP.Response) map[string]json.RawMessage {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "cashier1", 1, []string{auth.PermSalesView})

	resp := env.request(t, "POST", "/api/auth/login", "", fiber.Map{
		"username": "cashier1",
		"password": "secret",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["token"])

	resp = env.request(t, "POST", "/api/auth/login", "", fiber.Map{
		"username": "cashier1",
		"password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLoginInactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "gone", 1, nil)
	require.NoError(t, env.db.Model(user).Update("active", false).Error)

	resp := env.request(t, "POST", "/api/auth/login", "", fiber.Map{
		"username": "gone",
		"password": "secret",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRoutesRequireBearerToken(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, "GET", "/api/products", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestPermissionGate(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "cashier1", 1, []string{auth.PermSalesView})
	token := env.tokenFor(t, user, []string{auth.PermSalesView})

	// Holds sales.view, lacks products.view.
	resp := env.request(t, "GET", "/api/sales", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.request(t, "GET", "/api/products", token, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminOverridePassesEveryGate(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "boss", 1, []string{auth.PermAdminAllStores})
	token := env.tokenFor(t, user, []string{auth.PermAdminAllStores})

	for _, path := range []string{
		"/api/stores", "/api/roles", "/api/users", "/api/categories",
		"/api/products", "/api/promotions", "/api/sales", "/api/payments",
		"/api/sync/batches", "/api/sync/logs", "/api/sync/pending",
	} {
		resp := env.request(t, "GET", path, token, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, "GET %s", path)
	}
}

func TestProductCRUDIsStoreScoped(t *testing.T) {
	env := newTestEnv(t)
	perms := []string{auth.PermProductsView, auth.PermProductsManage}
	user := env.seedUser(t, "clerk", 1, perms)
	token := env.tokenFor(t, user, perms)

	other := models.Product{StoreRef: models.StoreRef{StoreID: 2}, Name: "elsewhere"}
	require.NoError(t, env.db.Create(&other).Error)

	resp := env.request(t, "POST", "/api/products", token, fiber.Map{
		"name":  "Espresso",
		"price": 3.5,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	var created models.Product
	require.NoError(t, json.Unmarshal(body["product"], &created))
	assert.Equal(t, uint(1), created.StoreID)
	assert.NotEqual(t, uuid.Nil, created.SyncID)

	// Listing shows only the caller's store.
	resp = env.request(t, "GET", "/api/products", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	var listed []models.Product
	require.NoError(t, json.Unmarshal(body["products"], &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Espresso", listed[0].Name)

	// Another store's record is not reachable directly either.
	resp = env.request(t, "GET", fmt.Sprintf("/api/products/%d", other.ID), token, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestCreateHonorsInactiveFlag(t *testing.T) {
	env := newTestEnv(t)
	perms := []string{auth.PermProductsManage, auth.PermUsersManage}
	user := env.seedUser(t, "clerk", 1, perms)
	token := env.tokenFor(t, user, perms)

	resp := env.request(t, "POST", "/api/products", token, fiber.Map{
		"name":   "Seasonal",
		"price":  1.0,
		"active": false,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var stored models.Product
	require.NoError(t, env.db.Where("name = ?", "Seasonal").First(&stored).Error)
	assert.False(t, stored.Active, "an explicit active=false must survive the insert")

	// Omitting the flag still means active.
	resp = env.request(t, "POST", "/api/products", token, fiber.Map{
		"name":  "Evergreen",
		"price": 1.0,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	stored = models.Product{} // reset so First doesn't filter on the previous row's primary key
	require.NoError(t, env.db.Where("name = ?", "Evergreen").First(&stored).Error)
	assert.True(t, stored.Active)

	// Same contract on user creation: the account starts disabled and
	// cannot log in.
	resp = env.request(t, "POST", "/api/users", token, fiber.Map{
		"username": "newhire",
		"password": "secret",
		"roleId":   user.RoleID,
		"storeId":  1,
		"active":   false,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var hired models.User
	require.NoError(t, env.db.Where("username = ?", "newhire").First(&hired).Error)
	assert.False(t, hired.Active)

	resp = env.request(t, "POST", "/api/auth/login", "", fiber.Map{
		"username": "newhire",
		"password": "secret",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProductSyncEndpoint(t *testing.T) {
	env := newTestEnv(t)
	perms := []string{auth.PermProductsManage}
	user := env.seedUser(t, "clerk", 1, perms)
	token := env.tokenFor(t, user, perms)

	syncID := uuid.New()
	resp := env.request(t, "POST", "/api/products/sync", token, []fiber.Map{
		{"syncId": syncID, "name": "Widget", "price": 9.99},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	var processed []models.Product
	require.NoError(t, json.Unmarshal(body["processed"], &processed))
	require.Len(t, processed, 1)
	assert.Equal(t, models.SyncStatusSynced, processed[0].SyncStatus)
	firstID := processed[0].ID

	// Same stable id again: overwrite, not duplicate.
	resp = env.request(t, "POST", "/api/products/sync", token, []fiber.Map{
		{"syncId": syncID, "name": "Widget v2", "price": 12.5},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	require.NoError(t, json.Unmarshal(body["processed"], &processed))
	require.Len(t, processed, 1)
	assert.Equal(t, firstID, processed[0].ID)
	assert.Equal(t, "Widget v2", processed[0].Name)

	var count int64
	env.db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestProductSyncPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	perms := []string{auth.PermProductsManage}
	user := env.seedUser(t, "clerk", 1, perms)
	token := env.tokenFor(t, user, perms)

	resp := env.request(t, "POST", "/api/products/sync", token, []fiber.Map{
		{"syncId": uuid.Nil, "name": "no stable id"},
		{"syncId": uuid.New(), "name": "fine"},
	})
	// Partial failure still answers 200; the caller reads failedCount.
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	var failedCount int
	require.NoError(t, json.Unmarshal(body["failedCount"], &failedCount))
	assert.Equal(t, 1, failedCount)

	var processed []models.Product
	require.NoError(t, json.Unmarshal(body["processed"], &processed))
	require.Len(t, processed, 1)
	assert.Equal(t, "fine", processed[0].Name)
}

func TestSyncBatchLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	perms := []string{auth.PermSyncExecute, auth.PermSyncView}
	user := env.seedUser(t, "device-user", 1, perms)
	token := env.tokenFor(t, user, perms)

	resp := env.request(t, "POST", "/api/sync/batches", token, fiber.Map{
		"deviceId":     "tablet-7",
		"totalRecords": 3,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	var batch models.SyncBatch
	require.NoError(t, json.Unmarshal(body["batch"], &batch))
	assert.Equal(t, models.BatchStatusInProgress, batch.Status)

	resp = env.request(t, "POST", "/api/sync/changes", token, fiber.Map{
		"batchId":    batch.ID,
		"entityName": "product",
		"entityId":   uuid.New().String(),
		"operation":  "Create",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = env.request(t, "PUT", fmt.Sprintf("/api/sync/batches/%d/status", batch.ID), token, fiber.Map{
		"status": "Completed",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	require.NoError(t, json.Unmarshal(body["batch"], &batch))
	assert.Equal(t, models.BatchStatusCompleted, batch.Status)
	assert.NotNil(t, batch.EndedAt)

	resp = env.request(t, "GET", "/api/sync/logs", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	var logs []models.SyncLog
	require.NoError(t, json.Unmarshal(body["logs"], &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, models.SyncStatusSynced, logs[0].Status)
}

func TestSyncBatchWrongStoreRejected(t *testing.T) {
	env := newTestEnv(t)
	perms := []string{auth.PermSyncExecute}
	user := env.seedUser(t, "device-user", 1, perms)
	token := env.tokenFor(t, user, perms)

	resp := env.request(t, "POST", "/api/sync/batches", token, fiber.Map{
		"deviceId": "tablet-7",
		"storeId":  2,
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
