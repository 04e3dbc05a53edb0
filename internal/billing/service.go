package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/customers"
	"github.com/odyssey-erp/bizops/internal/inventory"
	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
	"github.com/odyssey-erp/bizops/internal/platform/validate"
	"github.com/odyssey-erp/bizops/internal/tenant"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, tenantID string, fn func(context.Context, TxRepository) error) error
	ListTransactions(ctx context.Context, tenantID string) ([]Transaction, error)
	InventoryItem(ctx context.Context, tenantID, id string) (inventory.Item, error)
	ListAccounts(ctx context.Context, tenantID string) ([]Account, error)
	InsertAccount(ctx context.Context, tenantID string, in AccountInput) (Account, error)
	UpdateAccount(ctx context.Context, tenantID, id string, upd AccountUpdate) (Account, error)
	DeleteAccount(ctx context.Context, tenantID, id string) (bool, error)
}

// Service coordinates transactions, register quotes and accounts.
type Service struct {
	repo     RepositoryPort
	guard    authz.Authorizer
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, guard authz.Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, guard: guard, validate: validate.New(), logger: logger, now: time.Now}
}

// ListTransactions returns the tenant's transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context) ([]Transaction, error) {
	p, err := s.guard.Require(ctx, authz.ActionSensitiveRead)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListTransactions(ctx, p.TenantID)
	if err != nil {
		s.logger.Error("list transactions", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return []Transaction{}, nil
	}
	if items == nil {
		items = []Transaction{}
	}
	return items, nil
}

// CreateTransaction records a transaction. A sale referencing an inventory
// item draws down its stock; a credit sale to a customer raises their
// balance. The record and its side effects commit together or not at all.
// A reference the tenant cannot see is dropped from the record and its side
// effect skipped; the denormalised names are kept.
func (s *Service) CreateTransaction(ctx context.Context, in TransactionInput) (*Transaction, error) {
	p, err := s.guard.Require(ctx, authz.ActionTransactionCreate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	if in.Date.IsZero() {
		in.Date = s.now().UTC()
	}

	var out Transaction
	err = s.repo.WithTx(ctx, p.TenantID, func(ctx context.Context, tx TxRepository) error {
		rec := in
		// Rows are locked before the insert so the insert's foreign-key
		// share lock never has to be upgraded.
		var item *inventory.Item
		if in.InventoryID != "" {
			it, err := tx.Inventory().GetForUpdate(ctx, in.InventoryID)
			switch {
			case errors.Is(err, httpx.ErrNotFound):
				rec.InventoryID = ""
			case err != nil:
				return err
			default:
				if rec.InventoryName == "" {
					rec.InventoryName = it.Name
				}
				if in.DrawsInventory() {
					item = &it
				}
			}
		}
		var customer *customers.Customer
		if in.CustomerID != "" {
			c, err := tx.Customers().GetForUpdate(ctx, in.CustomerID)
			switch {
			case errors.Is(err, httpx.ErrNotFound):
				rec.CustomerID = ""
			case err != nil:
				return err
			default:
				if rec.CustomerName == "" {
					rec.CustomerName = c.Name
				}
				if in.ExtendsCredit() {
					customer = &c
				}
			}
		}

		var err error
		out, err = tx.InsertTransaction(ctx, rec)
		if err != nil {
			return err
		}
		if item != nil {
			if _, err := tx.Inventory().Save(ctx, item.ApplySale(in.QuantityGrams)); err != nil {
				return err
			}
		}
		if customer != nil {
			owed, status := customers.ApplyCredit(customer.AmountOwed, in.TotalPrice)
			if err := tx.Customers().SetBalance(ctx, customer.ID, owed, status); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("create transaction", slog.String("tenant_id", p.TenantID), slog.String("type", in.Type),
			slog.Bool("reference_rejected", db.IsForeignKeyViolation(err)), slog.Any("error", err))
		return nil, nil
	}
	return &out, nil
}

// QuoteSale prices a register sale without recording anything.
func (s *Service) QuoteSale(ctx context.Context, in QuoteInput) (*Quote, error) {
	p, err := s.guard.Require(ctx, authz.ActionTransactionCreate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	var item *inventory.Item
	if in.InventoryID != "" {
		it, err := s.repo.InventoryItem(ctx, p.TenantID, in.InventoryID)
		if err != nil {
			if !errors.Is(err, httpx.ErrNotFound) {
				s.logger.Error("quote sale", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
			}
			return nil, nil
		}
		item = &it
	}
	q := QuoteSale(in, item)
	return &q, nil
}

// ListAccounts returns the tenant's accounts, newest first.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	p, err := s.guard.Require(ctx, authz.ActionSensitiveRead)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListAccounts(ctx, p.TenantID)
	if err != nil {
		s.logger.Error("list accounts", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return []Account{}, nil
	}
	if items == nil {
		items = []Account{}
	}
	return items, nil
}

// CreateAccount stores an account.
func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (*Account, error) {
	p, err := s.guard.Require(ctx, authz.ActionAccountCreate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	a, err := s.repo.InsertAccount(ctx, p.TenantID, in)
	if err != nil {
		s.logger.Error("create account", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return nil, nil
	}
	return &a, nil
}

// UpdateAccount applies a partial update, or returns nil when the account
// does not exist.
func (s *Service) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*Account, error) {
	p, err := s.guard.Require(ctx, authz.ActionAccountUpdate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(upd); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	if !tenant.ValidID(id) {
		return nil, nil
	}
	a, err := s.repo.UpdateAccount(ctx, p.TenantID, id, upd)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			s.logger.Error("update account", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		}
		return nil, nil
	}
	return &a, nil
}

// DeleteAccount removes an account.
func (s *Service) DeleteAccount(ctx context.Context, id string) (bool, error) {
	p, err := s.guard.Require(ctx, authz.ActionAccountDelete)
	if err != nil {
		return false, err
	}
	if !tenant.ValidID(id) {
		return false, nil
	}
	ok, err := s.repo.DeleteAccount(ctx, p.TenantID, id)
	if err != nil {
		s.logger.Error("delete account", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		return false, nil
	}
	return ok, nil
}
