package authz

func actionSet(actions ...Action) map[Action]struct{} {
	set := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// policy is total over Roles(). Permissions are listed per role; there is no
// rank between roles.
var policy = map[Role]map[Action]struct{}{
	RoleOwner: actionSet(Actions()...),
	RoleAdmin: actionSet(Actions()...),
	RoleAnalyst: actionSet(
		ActionSensitiveRead,
		ActionReportingExport,
	),
	RoleOperator: actionSet(
		ActionScenarioCreate,
		ActionScenarioUpdate,
		ActionInventoryCreate,
		ActionInventoryUpdate,
		ActionCustomerCreate,
		ActionCustomerUpdate,
		ActionPaymentCreate,
		ActionTransactionCreate,
		ActionSensitiveRead,
	),
	RoleViewer: actionSet(
		ActionSensitiveRead,
	),
}

// RoleHasAction reports whether role grants action. Unknown pairs are denied.
func RoleHasAction(role Role, action Action) bool {
	actions, ok := policy[role]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// EffectiveRoles returns the claimed roles that are also bound, preserving
// claim order and dropping duplicates.
func EffectiveRoles(claimed, bound []Role) []Role {
	if len(claimed) == 0 || len(bound) == 0 {
		return nil
	}
	boundSet := make(map[Role]struct{}, len(bound))
	for _, r := range bound {
		boundSet[r] = struct{}{}
	}
	seen := make(map[Role]struct{}, len(claimed))
	var effective []Role
	for _, r := range claimed {
		if _, ok := boundSet[r]; !ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		effective = append(effective, r)
	}
	return effective
}

// AnyRoleHasAction reports whether at least one role grants action.
func AnyRoleHasAction(roles []Role, action Action) bool {
	for _, r := range roles {
		if RoleHasAction(r, action) {
			return true
		}
	}
	return false
}
