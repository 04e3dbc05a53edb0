package customers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
	"github.com/odyssey-erp/bizops/internal/platform/validate"
	"github.com/odyssey-erp/bizops/internal/tenant"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, tenantID string, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, tenantID string) ([]Customer, error)
	Get(ctx context.Context, tenantID, id string) (Customer, error)
	Insert(ctx context.Context, tenantID string, in Input) (Customer, error)
	Update(ctx context.Context, tenantID, id string, upd Update) (Customer, error)
}

// Service coordinates customer and payment operations.
type Service struct {
	repo     RepositoryPort
	guard    authz.Authorizer
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, guard authz.Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, guard: guard, validate: validate.New(), logger: logger}
}

// List returns the tenant's customers with their payments.
func (s *Service) List(ctx context.Context) ([]Customer, error) {
	p, err := s.guard.Require(ctx, authz.ActionSensitiveRead)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, p.TenantID)
	if err != nil {
		s.logger.Error("list customers", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return []Customer{}, nil
	}
	if items == nil {
		items = []Customer{}
	}
	return items, nil
}

// Get returns one customer, or nil.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	p, err := s.guard.Require(ctx, authz.ActionSensitiveRead)
	if err != nil {
		return nil, err
	}
	if !tenant.ValidID(id) {
		return nil, nil
	}
	c, err := s.repo.Get(ctx, p.TenantID, id)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			s.logger.Error("get customer", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		}
		return nil, nil
	}
	return &c, nil
}

// Create stores a customer with an opening balance.
func (s *Service) Create(ctx context.Context, in Input) (*Customer, error) {
	p, err := s.guard.Require(ctx, authz.ActionCustomerCreate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	c, err := s.repo.Insert(ctx, p.TenantID, in)
	if err != nil {
		s.logger.Error("create customer", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return nil, nil
	}
	return &c, nil
}

// Update changes contact details.
func (s *Service) Update(ctx context.Context, id string, upd Update) (*Customer, error) {
	p, err := s.guard.Require(ctx, authz.ActionCustomerUpdate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(upd); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	if !tenant.ValidID(id) {
		return nil, nil
	}
	c, err := s.repo.Update(ctx, p.TenantID, id, upd)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			s.logger.Error("update customer", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		}
		return nil, nil
	}
	return &c, nil
}

// Delete removes a customer after its payments.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	p, err := s.guard.Require(ctx, authz.ActionCustomerDelete)
	if err != nil {
		return false, err
	}
	if !tenant.ValidID(id) {
		return false, nil
	}
	var deleted bool
	err = s.repo.WithTx(ctx, p.TenantID, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeletePayments(ctx, id); err != nil {
			return err
		}
		var err error
		deleted, err = tx.Delete(ctx, id)
		return err
	})
	if err != nil {
		s.logger.Error("delete customer", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		return false, nil
	}
	return deleted, nil
}

// AddPayment records a payment and applies it to the customer's balance in
// one transaction. The customer row stays locked from the balance read to
// the balance write.
func (s *Service) AddPayment(ctx context.Context, customerID string, in PaymentInput) (*Payment, error) {
	p, err := s.guard.Require(ctx, authz.ActionPaymentCreate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	if !tenant.ValidID(customerID) {
		return nil, nil
	}
	var out Payment
	err = s.repo.WithTx(ctx, p.TenantID, func(ctx context.Context, tx TxRepository) error {
		customer, err := tx.GetForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		out, err = tx.InsertPayment(ctx, customerID, in)
		if err != nil {
			return err
		}
		owed, status := ApplyPayment(customer.AmountOwed, in.Amount)
		return tx.SetBalance(ctx, customerID, owed, status)
	})
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			s.logger.Error("add payment", slog.String("tenant_id", p.TenantID), slog.String("customer_id", customerID), slog.Any("error", err))
		}
		return nil, nil
	}
	return &out, nil
}
