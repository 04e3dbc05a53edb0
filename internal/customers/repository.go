package customers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/tenant"
)

const txAttempts = 3

var (
	customerTable = tenant.Table{
		Name: "customers",
		Columns: "id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), amount_owed, due_date, " +
			"status, COALESCE(notes, ''), created_at, updated_at",
		OrderBy: "created_at DESC",
	}
	paymentTable = tenant.Table{
		Name:    "payments",
		Columns: "id, customer_id, amount, date, method, COALESCE(notes, ''), created_at",
		OrderBy: "date DESC, created_at DESC",
	}
)

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.AmountOwed, &c.DueDate,
		&c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	c.Payments = []Payment{}
	return c, err
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.CustomerID, &p.Amount, &p.Date, &p.Method, &p.Notes, &p.CreatedAt)
	return p, err
}

// Repository persists customers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the ledger statements of one transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id string) (Customer, error)
	SetBalance(ctx context.Context, id string, owed decimal.Decimal, status Status) error
	InsertPayment(ctx context.Context, customerID string, in PaymentInput) (Payment, error)
	DeletePayments(ctx context.Context, customerID string) error
	Delete(ctx context.Context, id string) (bool, error)
}

type txRepo struct {
	repo *tenant.Repository
}

// NewTxRepository binds the ledger statements to a tenant repository,
// usually one running on a transaction owned by another package.
func NewTxRepository(repo *tenant.Repository) TxRepository {
	return &txRepo{repo: repo}
}

// WithTx executes fn inside a repeatable-read transaction. Serialization
// failures from concurrent ledger writes are retried, so fn may run more than
// once.
func (r *Repository) WithTx(ctx context.Context, tenantID string, fn func(context.Context, TxRepository) error) error {
	base, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return err
	}
	return db.Retry(ctx, txAttempts, func() error {
		return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
			return fn(ctx, NewTxRepository(base.WithConn(tx)))
		})
	})
}

// List returns every customer with payments, newest customer first.
func (r *Repository) List(ctx context.Context, tenantID string) ([]Customer, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return nil, err
	}
	return Load(ctx, repo)
}

// Load returns every customer visible to repo with their payments.
func Load(ctx context.Context, repo *tenant.Repository) ([]Customer, error) {
	items, err := tenant.List(ctx, repo, customerTable, scanCustomer)
	if err != nil {
		return nil, err
	}
	payments, err := tenant.List(ctx, repo, paymentTable, scanPayment)
	if err != nil {
		return nil, err
	}
	byCustomer := make(map[string][]Payment, len(items))
	for _, p := range payments {
		byCustomer[p.CustomerID] = append(byCustomer[p.CustomerID], p)
	}
	for i := range items {
		if ps, ok := byCustomer[items[i].ID]; ok {
			items[i].Payments = ps
		}
	}
	return items, nil
}

// Get returns one customer with payments ordered by date, newest first.
func (r *Repository) Get(ctx context.Context, tenantID, id string) (Customer, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return Customer{}, err
	}
	c, err := tenant.GetByID(ctx, repo, customerTable, id, scanCustomer)
	if err != nil {
		return Customer{}, err
	}
	payments, err := tenant.ListWhere(ctx, repo, paymentTable, "customer_id = $2", []any{id}, scanPayment)
	if err != nil {
		return Customer{}, err
	}
	if payments != nil {
		c.Payments = payments
	}
	return c, nil
}

// Insert stores a new customer.
func (r *Repository) Insert(ctx context.Context, tenantID string, in Input) (Customer, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return Customer{}, err
	}
	q := fmt.Sprintf(`INSERT INTO %s (tenant_id, name, phone, email, address, amount_owed, due_date, status, notes)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, NULLIF($9, '')) RETURNING %s`,
		customerTable.Name, customerTable.Columns)
	c, err := scanCustomer(repo.QueryRow(ctx, q, in.Name, in.Phone, in.Email, in.Address, in.AmountOwed,
		in.DueDate, string(OpeningStatus(in.AmountOwed)), in.Notes))
	if err != nil {
		return Customer{}, fmt.Errorf("customers: insert: %w", err)
	}
	return c, nil
}

// Update applies a partial update of contact details.
func (r *Repository) Update(ctx context.Context, tenantID, id string, upd Update) (Customer, error) {
	repo, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return Customer{}, err
	}
	var set tenant.Assignments
	if upd.Name != nil {
		set.Set("name", *upd.Name)
	}
	if upd.Phone != nil {
		set.Set("phone", *upd.Phone)
	}
	if upd.Email != nil {
		set.Set("email", *upd.Email)
	}
	if upd.Address != nil {
		set.Set("address", *upd.Address)
	}
	if upd.DueDate != nil {
		set.Set("due_date", *upd.DueDate)
	}
	if upd.Notes != nil {
		set.Set("notes", *upd.Notes)
	}
	return tenant.UpdateByID(ctx, repo, customerTable, id, set, scanCustomer)
}

func (t *txRepo) GetForUpdate(ctx context.Context, id string) (Customer, error) {
	return tenant.GetByIDForUpdate(ctx, t.repo, customerTable, id, scanCustomer)
}

func (t *txRepo) SetBalance(ctx context.Context, id string, owed decimal.Decimal, status Status) error {
	var set tenant.Assignments
	set.Set("amount_owed", owed)
	set.Set("status", string(status))
	_, err := tenant.UpdateByID(ctx, t.repo, customerTable, id, set, scanCustomer)
	return err
}

func (t *txRepo) InsertPayment(ctx context.Context, customerID string, in PaymentInput) (Payment, error) {
	date := in.Date
	if date.IsZero() {
		date = db.Today()
	}
	q := fmt.Sprintf(`INSERT INTO %s (tenant_id, customer_id, amount, date, method, notes)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')) RETURNING %s`, paymentTable.Name, paymentTable.Columns)
	p, err := scanPayment(t.repo.QueryRow(ctx, q, customerID, in.Amount, date, in.Method, in.Notes))
	if err != nil {
		return Payment{}, fmt.Errorf("customers: insert payment: %w", err)
	}
	return p, nil
}

func (t *txRepo) DeletePayments(ctx context.Context, customerID string) error {
	_, err := t.repo.DeleteWhere(ctx, paymentTable, "customer_id", customerID)
	return err
}

func (t *txRepo) Delete(ctx context.Context, id string) (bool, error) {
	return t.repo.DeleteByID(ctx, customerTable, id)
}
