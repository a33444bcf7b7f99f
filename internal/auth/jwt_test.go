package auth

import (
	"testing"
	"time"

	"pos-service/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{
		Base:     models.Base{ID: 42},
		Username: "cashier1",
		StoreID:  7,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, testUser(), []string{PermSalesManage})
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "cashier1", claims.Username)
	assert.Equal(t, uint(7), claims.StoreID)
	assert.Equal(t, []string{PermSalesManage}, claims.Permissions)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, testUser(), nil)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", -time.Minute, testUser(), nil)
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.Error(t, err)
}

func TestClaimsCanAccessStore(t *testing.T) {
	own := &Claims{StoreID: 7, Permissions: []string{PermSalesView}}
	assert.True(t, own.CanAccessStore(7))
	assert.False(t, own.CanAccessStore(8))

	admin := &Claims{StoreID: 7, Permissions: []string{PermAdminAllStores}}
	assert.True(t, admin.CanAccessStore(7))
	assert.True(t, admin.CanAccessStore(8))
}
