package businessdata

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizops/internal/platform/db/dbtest"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

func TestRepositoryPostgres(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	_, err := repo.Latest(ctx, "t1")
	require.ErrorIs(t, err, httpx.ErrNotFound)

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := repo.LatestOrInsert(ctx, "t1", Defaults())
			if err == nil {
				ids[i] = b.ID
			}
		}(i)
	}
	wg.Wait()

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM business_data WHERE tenant_id = 't1'`).Scan(&count))
	assert.Equal(t, 1, count)

	latest, err := repo.Latest(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, latest.WholesalePricePerOz.Equal(dec(100)))

	expenses := dec(650)
	updated, err := repo.Update(ctx, "t1", latest.ID, Update{OperatingExpenses: &expenses})
	require.NoError(t, err)
	assert.True(t, updated.OperatingExpenses.Equal(expenses))
	assert.True(t, updated.TargetProfitPerMonth.Equal(dec(2000)))

	_, err = repo.Update(ctx, "t2", latest.ID, Update{OperatingExpenses: &expenses})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
