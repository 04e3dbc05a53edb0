package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyIsTotalOverRoles(t *testing.T) {
	for _, role := range Roles() {
		_, ok := policy[role]
		require.Truef(t, ok, "role %s missing from policy", role)
	}
}

func TestOwnerAndAdminHoldEveryAction(t *testing.T) {
	for _, action := range Actions() {
		assert.True(t, RoleHasAction(RoleOwner, action), action)
		assert.True(t, RoleHasAction(RoleAdmin, action), action)
	}
}

func TestRestrictedRoles(t *testing.T) {
	cases := []struct {
		role    Role
		allowed []Action
	}{
		{RoleAnalyst, []Action{ActionSensitiveRead, ActionReportingExport}},
		{RoleViewer, []Action{ActionSensitiveRead}},
		{RoleOperator, []Action{
			ActionScenarioCreate, ActionScenarioUpdate,
			ActionInventoryCreate, ActionInventoryUpdate,
			ActionCustomerCreate, ActionCustomerUpdate,
			ActionPaymentCreate, ActionTransactionCreate,
			ActionSensitiveRead,
		}},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			allowed := make(map[Action]bool, len(tc.allowed))
			for _, a := range tc.allowed {
				allowed[a] = true
			}
			for _, action := range Actions() {
				assert.Equal(t, allowed[action], RoleHasAction(tc.role, action), action)
			}
		})
	}
}

func TestUnknownPairsAreDenied(t *testing.T) {
	assert.False(t, RoleHasAction(Role("editor"), ActionSensitiveRead))
	assert.False(t, RoleHasAction(RoleOwner, Action("ledger:erase")))
}

func TestEffectiveRolesIntersection(t *testing.T) {
	assert.Empty(t, EffectiveRoles(nil, []Role{RoleAdmin}))
	assert.Empty(t, EffectiveRoles([]Role{RoleAdmin}, nil))
	assert.Empty(t, EffectiveRoles([]Role{RoleOwner}, []Role{RoleAdmin}))
	assert.Equal(t,
		[]Role{RoleViewer, RoleAdmin},
		EffectiveRoles([]Role{RoleViewer, RoleAdmin, RoleViewer, RoleOwner}, []Role{RoleAdmin, RoleViewer}),
	)
}

func TestParseRoleListDropsUnknownRoles(t *testing.T) {
	assert.Equal(t, []Role{RoleAdmin, RoleViewer}, ParseRoleList(" admin, editor ,viewer,,"))
	assert.Nil(t, ParseRoleList("   "))
}
