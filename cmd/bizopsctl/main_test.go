package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizops/internal/authz"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestHelpListsCommands(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"migrate", "tenant", "roles", "export", "business-data"} {
		assert.Contains(t, out, name)
	}
}

func TestArgumentValidationRunsBeforeConnecting(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"force needs a number", []string{"migrate", "force", "abc"}, `invalid migration version "abc"`},
		{"export needs a tenant", []string{"export", "--tenant", " "}, "tenant id required"},
		{"init needs a tenant", []string{"business-data", "init", "--tenant", ""}, "tenant id required"},
		{"role without tenant", []string{"roles", "sync", "--user", "u1", "--role", "admin"}, "--role requires --tenant"},
		{"sync needs a user", []string{"roles", "sync"}, `required flag(s) "user" not set`},
		{"tenant needs a slug", []string{"tenant", "create", "--name", "Acme"}, `required flag(s) "slug" not set`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, append(tc.args, "--dsn", "postgres://invalid")...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestTextTenantIDsReachTheDatabase(t *testing.T) {
	const badDSN = "postgres://bizops@localhost:5432/bizops?sslmode=bogus"
	for _, args := range [][]string{
		{"export", "--tenant", "t1"},
		{"business-data", "init", "--tenant", "t1"},
	} {
		_, err := execute(t, append(args, "--dsn", badDSN)...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "platform/db: parse config", args)
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("2")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = parseVersion("-1")
	require.NoError(t, err)
	assert.Equal(t, -1, v)

	_, err = parseVersion("-2")
	assert.Error(t, err)
}

func TestOperatorGuardIsScopedToTenant(t *testing.T) {
	const tenantID = "0c9a4f7e-3b1d-4f55-8d2a-5e8c1f0b7a21"
	p, err := operatorGuard(tenantID).Require(context.Background(), authz.ActionBusinessDataWrite)
	require.NoError(t, err)
	assert.Equal(t, tenantID, p.TenantID)
}
