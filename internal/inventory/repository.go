package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/tenant"
)

// Table is the tenant-scoped inventory table.
var Table = tenant.Table{
	Name: "inventory_items",
	Columns: "id, name, COALESCE(description, ''), quantity_g, quantity_oz, quantity_kg, purchase_date, " +
		"cost_per_oz, total_cost, reorder_threshold_g, created_at, updated_at",
	OrderBy: "created_at DESC",
}

// Scan decodes a row selected with Table.Columns.
func Scan(row pgx.Row) (Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.QuantityG, &i.QuantityOz, &i.QuantityKg, &i.PurchaseDate,
		&i.CostPerOz, &i.TotalCost, &i.ReorderThresholdG, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes locked reads and writes used inside a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id string) (Item, error)
	Save(ctx context.Context, item Item) (Item, error)
}

type txRepo struct {
	repo *tenant.Repository
}

// NewTxRepository binds the inventory statements to a tenant repository,
// usually one running on a transaction owned by another package.
func NewTxRepository(repo *tenant.Repository) TxRepository {
	return &txRepo{repo: repo}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, tenantID string, fn func(context.Context, TxRepository) error) error {
	base, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(base.WithConn(tx)))
	})
}

// List returns every item of the tenant, newest first.
func (r *Repository) List(ctx context.Context, tenantID string) ([]Item, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return nil, err
	}
	return Load(ctx, repo)
}

// Load returns every item visible to repo, newest first.
func Load(ctx context.Context, repo *tenant.Repository) ([]Item, error) {
	return tenant.List(ctx, repo, Table, Scan)
}

// Insert stores a new item.
func (r *Repository) Insert(ctx context.Context, tenantID string, item Item) (Item, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return Item{}, err
	}
	q := fmt.Sprintf(`INSERT INTO %s (tenant_id, name, description, quantity_g, quantity_oz, quantity_kg, purchase_date,
cost_per_oz, total_cost, reorder_threshold_g)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10) RETURNING %s`, Table.Name, Table.Columns)
	out, err := Scan(repo.QueryRow(ctx, q, item.Name, item.Description, item.QuantityG, item.QuantityOz, item.QuantityKg,
		item.PurchaseDate, item.CostPerOz, item.TotalCost, item.ReorderThresholdG))
	if err != nil {
		return Item{}, fmt.Errorf("inventory: insert: %w", err)
	}
	return out, nil
}

// Delete removes an item. Transactions that referenced it keep their
// denormalised name and lose the reference.
func (r *Repository) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return false, err
	}
	return repo.DeleteByID(ctx, Table, id)
}

func (t *txRepo) GetForUpdate(ctx context.Context, id string) (Item, error) {
	return tenant.GetByIDForUpdate(ctx, t.repo, Table, id, Scan)
}

func (t *txRepo) Save(ctx context.Context, item Item) (Item, error) {
	var set tenant.Assignments
	set.Set("name", item.Name)
	set.Set("description", item.Description)
	set.Set("quantity_g", item.QuantityG)
	set.Set("quantity_oz", item.QuantityOz)
	set.Set("quantity_kg", item.QuantityKg)
	set.Set("purchase_date", item.PurchaseDate)
	set.Set("cost_per_oz", item.CostPerOz)
	set.Set("total_cost", item.TotalCost)
	set.Set("reorder_threshold_g", item.ReorderThresholdG)
	return tenant.UpdateByID(ctx, t.repo, Table, item.ID, set, Scan)
}
