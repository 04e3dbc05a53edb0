package billing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizops/internal/customers"
	"github.com/odyssey-erp/bizops/internal/inventory"
	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/tenant"
)

const txAttempts = 3

var (
	transactionTable = tenant.Table{
		Name: "transactions",
		Columns: "id, date, type, inventory_id, COALESCE(inventory_name, ''), quantity_grams, price_per_gram, " +
			"total_price, cost, profit, payment_method, customer_id, COALESCE(customer_name, ''), COALESCE(notes, ''), created_at",
		OrderBy: "created_at DESC",
	}
	accountTable = tenant.Table{
		Name:    "accounts",
		Columns: "id, name, type, balance, COALESCE(description, ''), created_at, updated_at",
		OrderBy: "created_at DESC",
	}
)

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Date, &t.Type, &t.InventoryID, &t.InventoryName, &t.QuantityGrams, &t.PricePerGram,
		&t.TotalPrice, &t.Cost, &t.Profit, &t.PaymentMethod, &t.CustomerID, &t.CustomerName, &t.Notes, &t.CreatedAt)
	return t, err
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Balance, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Repository persists transactions and accounts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository groups the statements of one transaction-recording unit of
// work. Inventory and Customers run on the same database transaction.
type TxRepository interface {
	InsertTransaction(ctx context.Context, in TransactionInput) (Transaction, error)
	Inventory() inventory.TxRepository
	Customers() customers.TxRepository
}

type txRepo struct {
	repo      *tenant.Repository
	inventory inventory.TxRepository
	customers customers.TxRepository
}

// WithTx executes fn inside a repeatable-read transaction. Serialization
// failures are retried, so fn may run more than once.
func (r *Repository) WithTx(ctx context.Context, tenantID string, fn func(context.Context, TxRepository) error) error {
	base, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return err
	}
	return db.Retry(ctx, txAttempts, func() error {
		return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
			repo := base.WithConn(tx)
			return fn(ctx, &txRepo{
				repo:      repo,
				inventory: inventory.NewTxRepository(repo),
				customers: customers.NewTxRepository(repo),
			})
		})
	})
}

// ListTransactions returns the tenant's transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, tenantID string) ([]Transaction, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return nil, err
	}
	return LoadTransactions(ctx, repo)
}

// LoadTransactions returns every transaction visible to repo, newest first.
func LoadTransactions(ctx context.Context, repo *tenant.Repository) ([]Transaction, error) {
	return tenant.List(ctx, repo, transactionTable, scanTransaction)
}

// InventoryItem reads one inventory item without locking it.
func (r *Repository) InventoryItem(ctx context.Context, tenantID, id string) (inventory.Item, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return inventory.Item{}, err
	}
	return tenant.GetByID(ctx, repo, inventory.Table, id, inventory.Scan)
}

// ListAccounts returns the tenant's accounts, newest first.
func (r *Repository) ListAccounts(ctx context.Context, tenantID string) ([]Account, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return nil, err
	}
	return LoadAccounts(ctx, repo)
}

// LoadAccounts returns every account visible to repo, newest first.
func LoadAccounts(ctx context.Context, repo *tenant.Repository) ([]Account, error) {
	return tenant.List(ctx, repo, accountTable, scanAccount)
}

// InsertAccount stores a new account.
func (r *Repository) InsertAccount(ctx context.Context, tenantID string, in AccountInput) (Account, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return Account{}, err
	}
	q := fmt.Sprintf(`INSERT INTO %s (tenant_id, name, type, balance, description)
VALUES ($1, $2, $3, $4, NULLIF($5, '')) RETURNING %s`, accountTable.Name, accountTable.Columns)
	a, err := scanAccount(repo.QueryRow(ctx, q, in.Name, in.Type, in.Balance, in.Description))
	if err != nil {
		return Account{}, fmt.Errorf("billing: insert account: %w", err)
	}
	return a, nil
}

// UpdateAccount applies the set fields of upd.
func (r *Repository) UpdateAccount(ctx context.Context, tenantID, id string, upd AccountUpdate) (Account, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return Account{}, err
	}
	var set tenant.Assignments
	if upd.Name != nil {
		set.Set("name", *upd.Name)
	}
	if upd.Type != nil {
		set.Set("type", *upd.Type)
	}
	if upd.Balance != nil {
		set.Set("balance", *upd.Balance)
	}
	if upd.Description != nil {
		set.Set("description", *upd.Description)
	}
	return tenant.UpdateByID(ctx, repo, accountTable, id, set, scanAccount)
}

// DeleteAccount removes an account.
func (r *Repository) DeleteAccount(ctx context.Context, tenantID, id string) (bool, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return false, err
	}
	return repo.DeleteByID(ctx, accountTable, id)
}

func (t *txRepo) InsertTransaction(ctx context.Context, in TransactionInput) (Transaction, error) {
	q := fmt.Sprintf(`INSERT INTO %s (tenant_id, date, type, inventory_id, inventory_name, quantity_grams, price_per_gram,
total_price, cost, profit, payment_method, customer_id, customer_name, notes)
VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, NULLIF($12, '')::uuid,
NULLIF($13, ''), NULLIF($14, '')) RETURNING %s`, transactionTable.Name, transactionTable.Columns)
	out, err := scanTransaction(t.repo.QueryRow(ctx, q, in.Date, in.Type, in.InventoryID, in.InventoryName,
		in.QuantityGrams, in.PricePerGram, in.TotalPrice, in.Cost, in.Profit, in.PaymentMethod,
		in.CustomerID, in.CustomerName, in.Notes))
	if err != nil {
		return Transaction{}, fmt.Errorf("billing: insert transaction: %w", err)
	}
	return out, nil
}

func (t *txRepo) Inventory() inventory.TxRepository { return t.inventory }

func (t *txRepo) Customers() customers.TxRepository { return t.customers }
