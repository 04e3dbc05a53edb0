// Package authz resolves the calling principal, reconciles claimed roles with
// durable role bindings and decides whether an action is permitted.
package authz

import "strings"

// Role is a tenant-scoped role slug.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleAnalyst  Role = "analyst"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleAnalyst, RoleOperator, RoleViewer}
}

// ParseRole reports whether s names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimSpace(s))
	switch r {
	case RoleOwner, RoleAdmin, RoleAnalyst, RoleOperator, RoleViewer:
		return r, true
	}
	return "", false
}

// ParseRoleList splits a comma separated claim list, trimming entries and
// dropping unknown roles.
func ParseRoleList(raw string) []Role {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var roles []Role
	for _, part := range strings.Split(raw, ",") {
		if role, ok := ParseRole(part); ok {
			roles = append(roles, role)
		}
	}
	return roles
}

// Action is a fine-grained permission checked by the guard.
type Action string

const (
	ActionBusinessDataWrite Action = "business_data:write"
	ActionScenarioCreate    Action = "scenario:create"
	ActionScenarioUpdate    Action = "scenario:update"
	ActionScenarioDelete    Action = "scenario:delete"
	ActionInventoryCreate   Action = "inventory:create"
	ActionInventoryUpdate   Action = "inventory:update"
	ActionInventoryDelete   Action = "inventory:delete"
	ActionCustomerCreate    Action = "customer:create"
	ActionCustomerUpdate    Action = "customer:update"
	ActionCustomerDelete    Action = "customer:delete"
	ActionPaymentCreate     Action = "payment:create"
	ActionTransactionCreate Action = "transaction:create"
	ActionAccountCreate     Action = "account:create"
	ActionAccountUpdate     Action = "account:update"
	ActionAccountDelete     Action = "account:delete"
	ActionSensitiveRead     Action = "sensitive:read"
	ActionReportingExport   Action = "reporting:export"
)

// Actions lists every action in declaration order.
func Actions() []Action {
	return []Action{
		ActionBusinessDataWrite,
		ActionScenarioCreate, ActionScenarioUpdate, ActionScenarioDelete,
		ActionInventoryCreate, ActionInventoryUpdate, ActionInventoryDelete,
		ActionCustomerCreate, ActionCustomerUpdate, ActionCustomerDelete,
		ActionPaymentCreate,
		ActionTransactionCreate,
		ActionAccountCreate, ActionAccountUpdate, ActionAccountDelete,
		ActionSensitiveRead,
		ActionReportingExport,
	}
}

// Principal is the caller identity for one request. ClaimRoles are untrusted
// until intersected with the bound roles.
type Principal struct {
	UserID     string `json:"userId"`
	TenantID   string `json:"tenantId"`
	ClaimRoles []Role `json:"claimRoles"`
}
