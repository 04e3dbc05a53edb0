package businessdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
	"github.com/odyssey-erp/bizops/internal/tenant"
)

var table = tenant.Table{
	Name:    "business_data",
	Columns: "id, wholesale_price_per_oz, target_profit_per_month, operating_expenses, created_at, updated_at",
	OrderBy: "created_at DESC",
}

func scan(row pgx.Row) (BusinessData, error) {
	var b BusinessData
	err := row.Scan(&b.ID, &b.WholesalePricePerOz, &b.TargetProfitPerMonth, &b.OperatingExpenses, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// Repository persists business data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Latest returns the newest baseline of the tenant.
func (r *Repository) Latest(ctx context.Context, tenantID string) (BusinessData, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return BusinessData{}, err
	}
	return LoadLatest(ctx, repo)
}

// Insert stores a new baseline.
func (r *Repository) Insert(ctx context.Context, tenantID string, in Input) (BusinessData, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return BusinessData{}, err
	}
	return insert(ctx, repo, in)
}

// Update applies a partial update.
func (r *Repository) Update(ctx context.Context, tenantID, id string, upd Update) (BusinessData, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return BusinessData{}, err
	}
	var set tenant.Assignments
	if upd.WholesalePricePerOz != nil {
		set.Set("wholesale_price_per_oz", *upd.WholesalePricePerOz)
	}
	if upd.TargetProfitPerMonth != nil {
		set.Set("target_profit_per_month", *upd.TargetProfitPerMonth)
	}
	if upd.OperatingExpenses != nil {
		set.Set("operating_expenses", *upd.OperatingExpenses)
	}
	return tenant.UpdateByID(ctx, repo, table, id, set, scan)
}

// LatestOrInsert returns the newest baseline, inserting defaults first when
// the tenant has none. A transaction-scoped advisory lock serialises
// concurrent initialisation of the same tenant.
func (r *Repository) LatestOrInsert(ctx context.Context, tenantID string, defaults Input) (BusinessData, error) {
	base, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return BusinessData{}, err
	}
	var out BusinessData
	err = db.WithReadCommitted(ctx, r.pool, func(tx pgx.Tx) error {
		repo := base.WithConn(tx)
		if _, err := repo.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('business_data:' || $1))`); err != nil {
			return fmt.Errorf("businessdata: lock: %w", err)
		}
		existing, err := LoadLatest(ctx, repo)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, httpx.ErrNotFound) {
			return err
		}
		out, err = insert(ctx, repo, defaults)
		return err
	})
	return out, err
}

// LoadLatest returns the newest baseline visible to repo, or httpx.ErrNotFound.
func LoadLatest(ctx context.Context, repo *tenant.Repository) (BusinessData, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1 ORDER BY %s LIMIT 1`, table.Columns, table.Name, table.OrderBy)
	b, err := scan(repo.QueryRow(ctx, q))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BusinessData{}, httpx.ErrNotFound
		}
		return BusinessData{}, fmt.Errorf("businessdata: latest: %w", err)
	}
	return b, nil
}

func insert(ctx context.Context, repo *tenant.Repository, in Input) (BusinessData, error) {
	q := fmt.Sprintf(`INSERT INTO %s (tenant_id, wholesale_price_per_oz, target_profit_per_month, operating_expenses)
VALUES ($1, $2, $3, $4) RETURNING %s`, table.Name, table.Columns)
	b, err := scan(repo.QueryRow(ctx, q, in.WholesalePricePerOz, in.TargetProfitPerMonth, in.OperatingExpenses))
	if err != nil {
		return BusinessData{}, fmt.Errorf("businessdata: insert: %w", err)
	}
	return b, nil
}
