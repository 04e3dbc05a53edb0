package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizops/internal/platform/db/dbtest"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

func TestProvisionValidatesBeforeWriting(t *testing.T) {
	_, err := NewProvisioner(nil).Create(context.Background(), NewTenant{Name: " ", Domains: []string{"  "}})
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "slug")
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "domains[0]")
}

func TestProvisionPostgres(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()
	p := NewProvisioner(pool)

	created, err := p.Create(ctx, NewTenant{ID: "t1", Slug: "acme", Name: "Acme", Domains: []string{"Acme.Example.com:443"}})
	require.NoError(t, err)
	assert.Equal(t, Tenant{ID: "t1", Slug: "acme", Name: "Acme", Domains: []string{"acme.example.com"}}, created)

	tc, err := NewResolver(pool, "example.com").Resolve(ctx, "acme.example.com")
	require.NoError(t, err)
	assert.Equal(t, "t1", tc.TenantID)

	generated, err := p.Create(ctx, NewTenant{Slug: "beta", Name: "Beta"})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
	assert.Empty(t, generated.Domains)

	t.Run("a taken slug", func(t *testing.T) {
		_, err := p.Create(ctx, NewTenant{Slug: "acme", Name: "Other"})
		require.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("a taken domain rolls back the tenant", func(t *testing.T) {
		_, err := p.Create(ctx, NewTenant{Slug: "gamma", Name: "Gamma", Domains: []string{"acme.example.com"}})
		require.ErrorIs(t, err, ErrAlreadyExists)

		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenants WHERE slug = 'gamma'`).Scan(&n))
		assert.Zero(t, n)
	})
}
