// internal/auth/policy.go
package auth

// Permission strings. Authorization policies map 1:1 to these; each policy
// is satisfied by the exact permission claim or by either administrative
// override claim.
const (
	// Administrative overrides: holding either one satisfies every policy.
	PermAdminFullAccess = "admin.full_access"
	PermAdminAllStores  = "admin.manage_all_stores"

	PermStoresView  = "stores.view"
	PermStoresManage = "stores.manage"

	PermRolesView   = "roles.view"
	PermRolesManage = "roles.manage"

	PermUsersView   = "users.view"
	PermUsersManage = "users.manage"

	PermCategoriesView   = "categories.view"
	PermCategoriesManage = "categories.manage"

	PermProductsView   = "products.view"
	PermProductsManage = "products.manage"

	PermPromotionsView   = "promotions.view"
	PermPromotionsManage = "promotions.manage"

	PermSalesView   = "sales.view"
	PermSalesManage = "sales.manage"

	PermPaymentsView   = "payments.view"
	PermPaymentsManage = "payments.manage"

	PermSyncExecute = "sync.execute"
	PermSyncView    = "sync.view"
)

// AllPermissions is the full catalog, used when seeding roles.
var AllPermissions = []string{
	PermAdminFullAccess, PermAdminAllStores,
	PermStoresView, PermStoresManage,
	PermRolesView, PermRolesManage,
	PermUsersView, PermUsersManage,
	PermCategoriesView, PermCategoriesManage,
	PermProductsView, PermProductsManage,
	PermPromotionsView, PermPromotionsManage,
	PermSalesView, PermSalesManage,
	PermPaymentsView, PermPaymentsManage,
	PermSyncExecute, PermSyncView,
}

// IsAdmin reports whether the permission set carries an administrative
// override claim. Overrides are a superset rule: they satisfy every policy
// regardless of the specific permission a route declares.
func IsAdmin(perms []string) bool {
	for _, p := range perms {
		if p == PermAdminFullAccess || p == PermAdminAllStores {
			return true
		}
	}
	return false
}

// Allowed checks a specific permission against the caller's resolved set.
// The administrative override is checked first and wins outright.
func Allowed(perms []string, required string) bool {
	if IsAdmin(perms) {
		return true
	}
	for _, p := range perms {
		if p == required {
			return true
		}
	}
	return false
}
