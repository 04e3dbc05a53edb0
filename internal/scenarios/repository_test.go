package scenarios

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/authz/authztest"
	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/platform/db/dbtest"
)

func countScenarios(t *testing.T, repo *Repository, tenantID string) int {
	t.Helper()
	items, err := repo.List(context.Background(), tenantID)
	require.NoError(t, err)
	return len(items)
}

func TestRepositoryPostgres(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	svc := NewService(repo, authztest.Guard("t1", "u1", authz.RoleAdmin), nil)

	created, err := svc.Create(ctx, sample())
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Len(t, created.Salespeople, 2)
	assert.Equal(t, defaultTimePeriod, created.TimePeriod)

	t.Run("salesperson failure rolls back scenario", func(t *testing.T) {
		before := countScenarios(t, repo, "t1")
		err := repo.WithTx(ctx, "t1", func(ctx context.Context, tx TxRepository) error {
			if _, err := tx.InsertScenario(ctx, sample()); err != nil {
				return err
			}
			return tx.InsertSalespeople(ctx, uuid.NewString(), []SalespersonInput{{Name: "Orphan"}})
		})
		require.Error(t, err)
		assert.True(t, db.IsForeignKeyViolation(err))
		assert.Equal(t, before, countScenarios(t, repo, "t1"))
	})

	t.Run("salespeople cannot attach to another tenant's scenario", func(t *testing.T) {
		err := repo.WithTx(ctx, "t2", func(ctx context.Context, tx TxRepository) error {
			return tx.InsertSalespeople(ctx, created.ID, []SalespersonInput{{Name: "Intruder"}})
		})
		require.Error(t, err)
		assert.True(t, db.IsForeignKeyViolation(err))
	})

	t.Run("other tenant cannot see or delete", func(t *testing.T) {
		other := NewService(repo, authztest.Guard("t2", "u9", authz.RoleOwner), nil)
		sc, err := other.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, sc)

		ok, err := other.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	retail := decimal.NewFromInt(15)
	people := []SalespersonInput{{Name: "Dee", SalesQuantity: decimal.NewFromInt(40)}}
	updated, err := svc.Update(ctx, created.ID, Update{RetailPrice: &retail, Salespeople: &people})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, updated.RetailPrice.Equal(retail))
	require.Len(t, updated.Salespeople, 1)
	assert.Equal(t, "Dee", updated.Salespeople[0].Name)

	ok, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM salespeople WHERE scenario_id = $1`, created.ID).Scan(&remaining))
	assert.Zero(t, remaining)
}
