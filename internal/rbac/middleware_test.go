package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ampere-erp/ampere-erp/internal/shared"
)

func doRequest(t *testing.T, mw func(http.Handler) http.Handler, role string) int {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		ctx := shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: 1, Role: role})
		req = req.WithContext(ctx)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr.Code
}

func TestRequireAny(t *testing.T) {
	m := Middleware{}
	mw := m.RequireAny(PermCostCompare, PermReview)

	require.Equal(t, http.StatusNoContent, doRequest(t, mw, shared.RoleOfficer))
	require.Equal(t, http.StatusNoContent, doRequest(t, mw, shared.RoleManager))
	require.Equal(t, http.StatusForbidden, doRequest(t, mw, shared.RoleRequester))
	require.Equal(t, http.StatusForbidden, doRequest(t, mw, ""))
}

func TestRequireAll(t *testing.T) {
	m := Middleware{}
	mw := m.RequireAll(PermStockView, PermStockEdit)

	require.Equal(t, http.StatusNoContent, doRequest(t, mw, shared.RoleOfficer))
	require.Equal(t, http.StatusNoContent, doRequest(t, mw, shared.RoleAdmin))
	// Managers can see stock but not move it.
	require.Equal(t, http.StatusForbidden, doRequest(t, mw, shared.RoleManager))
}

func TestPermissionsForRole(t *testing.T) {
	require.Contains(t, PermissionsForRole(shared.RoleManager), PermReview)
	require.NotContains(t, PermissionsForRole(shared.RoleOfficer), PermReview)
	require.NotContains(t, PermissionsForRole(shared.RoleManager), PermCostCompare)
	require.Empty(t, PermissionsForRole("unknown"))

	// Returned slice is a copy; mutating it must not poison the table.
	perms := PermissionsForRole(shared.RoleAdmin)
	perms[0] = "mutated"
	require.NotContains(t, PermissionsForRole(shared.RoleAdmin), "mutated")
}
