// Package authztest builds guards for tests in other packages.
package authztest

import (
	"context"

	"github.com/odyssey-erp/bizops/internal/authz"
)

// StaticBindings is an in-memory authz.BindingStore keyed by tenant and
// principal.
type StaticBindings map[string][]authz.Role

// Bind grants roles to principalID in tenantID.
func (b StaticBindings) Bind(tenantID, principalID string, roles ...authz.Role) StaticBindings {
	b[tenantID+"/"+principalID] = append(b[tenantID+"/"+principalID], roles...)
	return b
}

// BoundRoles implements authz.BindingStore.
func (b StaticBindings) BoundRoles(_ context.Context, tenantID, principalID string) ([]authz.Role, error) {
	return b[tenantID+"/"+principalID], nil
}

// Guard returns a guard for a principal that both claims and is bound to
// roles in tenantID.
func Guard(tenantID, userID string, roles ...authz.Role) *authz.Guard {
	resolver := authz.FixedResolver{Principal: &authz.Principal{UserID: userID, TenantID: tenantID, ClaimRoles: roles}}
	bindings := StaticBindings{}.Bind(tenantID, userID, roles...)
	return authz.NewGuard(resolver, bindings)
}

// Anonymous returns a guard that never resolves a principal.
func Anonymous() *authz.Guard {
	return authz.NewGuard(authz.FixedResolver{}, StaticBindings{})
}
