package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedExactPermission(t *testing.T) {
	perms := []string{PermSalesView, PermProductsView}

	assert.True(t, Allowed(perms, PermSalesView))
	assert.True(t, Allowed(perms, PermProductsView))
	assert.False(t, Allowed(perms, PermSalesManage))
	assert.False(t, Allowed(perms, PermStoresManage))
}

func TestAllowedAdminOverride(t *testing.T) {
	// Either administrative claim satisfies every policy, including ones
	// the user holds no explicit permission for.
	for _, override := range []string{PermAdminFullAccess, PermAdminAllStores} {
		perms := []string{override}
		for _, required := range AllPermissions {
			assert.True(t, Allowed(perms, required),
				"override %s should satisfy %s", override, required)
		}
	}
}

func TestAllowedEmptySet(t *testing.T) {
	assert.False(t, Allowed(nil, PermSalesView))
	assert.False(t, Allowed([]string{}, PermSalesView))
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin([]string{PermAdminFullAccess}))
	assert.True(t, IsAdmin([]string{PermSalesView, PermAdminAllStores}))
	assert.False(t, IsAdmin([]string{PermSalesView, PermSalesManage}))
	assert.False(t, IsAdmin(nil))
}
