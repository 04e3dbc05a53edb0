package inventory

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
	List(ctx context.Context, tenantID string) ([]Item, error)
	Insert(ctx context.Context, tenantID string, item Item) (Item, error)
	Delete(ctx context.Context, tenantID, id string) (bool, error)
}

// Service coordinates inventory operations.
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

// List returns the tenant's items, newest first.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	p, err := s.guard.Require(ctx, authz.ActionSensitiveRead)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, p.TenantID)
	if err != nil {
		s.logger.Error("list inventory", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return []Item{}, nil
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Create stores a new item with derived quantities.
func (s *Service) Create(ctx context.Context, in Input) (*Item, error) {
	p, err := s.guard.Require(ctx, authz.ActionInventoryCreate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	item, err := s.repo.Insert(ctx, p.TenantID, NewItem(in))
	if err != nil {
		s.logger.Error("create inventory item", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return nil, nil
	}
	return &item, nil
}

// Update applies a partial update under a row lock so derived fields always
// match the stored grams.
func (s *Service) Update(ctx context.Context, id string, upd Update) (*Item, error) {
	p, err := s.guard.Require(ctx, authz.ActionInventoryUpdate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(upd); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	if !tenant.ValidID(id) {
		return nil, nil
	}
	var out Item
	err = s.repo.WithTx(ctx, p.TenantID, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out, err = tx.Save(ctx, upd.Apply(current))
		return err
	})
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			s.logger.Error("update inventory item", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		}
		return nil, nil
	}
	return &out, nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	p, err := s.guard.Require(ctx, authz.ActionInventoryDelete)
	if err != nil {
		return false, err
	}
	if !tenant.ValidID(id) {
		return false, nil
	}
	ok, err := s.repo.Delete(ctx, p.TenantID, id)
	if err != nil {
		s.logger.Error("delete inventory item", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		return false, nil
	}
	return ok, nil
}
