// Package reporting builds read-only tenant exports and archives them to
// object storage.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizops/internal/billing"
	"github.com/odyssey-erp/bizops/internal/businessdata"
	"github.com/odyssey-erp/bizops/internal/customers"
	"github.com/odyssey-erp/bizops/internal/inventory"
	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
	"github.com/odyssey-erp/bizops/internal/tenant"
)

// Export is a consistent snapshot of one tenant's business records.
type Export struct {
	TenantID     string                     `json:"tenantId"`
	GeneratedAt  time.Time                  `json:"generatedAt"`
	BusinessData *businessdata.BusinessData `json:"businessData"`
	Inventory    []inventory.Item           `json:"inventory"`
	Customers    []customers.Customer       `json:"customers"`
	Transactions []billing.Transaction      `json:"transactions"`
	Accounts     []billing.Account          `json:"accounts"`
}

// Repository reads tenant exports from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Snapshot reads every exported collection inside one read-only snapshot
// transaction.
func (r *Repository) Snapshot(ctx context.Context, tenantID string) (Export, error) {
	base, err := tenant.NewRepository(r.pool, tenantID)
	if err != nil {
		return Export{}, err
	}
	out := Export{TenantID: base.TenantID()}
	err = db.WithSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		repo := base.WithConn(tx)
		bd, err := businessdata.LoadLatest(ctx, repo)
		switch {
		case errors.Is(err, httpx.ErrNotFound):
		case err != nil:
			return err
		default:
			out.BusinessData = &bd
		}
		if out.Inventory, err = inventory.Load(ctx, repo); err != nil {
			return err
		}
		if out.Customers, err = customers.Load(ctx, repo); err != nil {
			return err
		}
		if out.Transactions, err = billing.LoadTransactions(ctx, repo); err != nil {
			return err
		}
		out.Accounts, err = billing.LoadAccounts(ctx, repo)
		return err
	})
	if err != nil {
		return Export{}, fmt.Errorf("reporting: snapshot: %w", err)
	}
	return out, nil
}
