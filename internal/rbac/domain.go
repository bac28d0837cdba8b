package rbac

import "github.com/ampere-erp/ampere-erp/internal/shared"

// Permission strings guarded by the middleware.
const (
	PermMasterView    = "master.view"
	PermMasterEdit    = "master.edit"
	PermStockView     = "stock.view"
	PermStockEdit     = "stock.edit"
	PermRequestCreate = "procure.request"
	PermRequestEdit   = "procure.edit"
	PermCostCompare   = "procure.cc"
	PermReview        = "procure.review"
	PermOrderManage   = "procure.order"
	PermUserAdmin     = "user.admin"
)

// rolePermissions maps the provider role claim to granted permissions. The
// role set is fixed by the identity provider, so a static table replaces the
// permission lookup the database would otherwise serve.
var rolePermissions = map[string][]string{
	shared.RoleRequester: {
		PermMasterView, PermStockView, PermRequestCreate,
	},
	shared.RoleOfficer: {
		PermMasterView, PermMasterEdit, PermStockView, PermStockEdit,
		PermRequestCreate, PermRequestEdit, PermCostCompare, PermOrderManage,
	},
	shared.RoleManager: {
		PermMasterView, PermStockView, PermRequestEdit,
		PermReview, PermOrderManage,
	},
	shared.RoleAdmin: {
		PermMasterView, PermMasterEdit, PermStockView, PermStockEdit,
		PermRequestCreate, PermRequestEdit, PermCostCompare, PermReview,
		PermOrderManage, PermUserAdmin,
	},
}

// PermissionsForRole returns the granted permission set for a role claim.
func PermissionsForRole(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
