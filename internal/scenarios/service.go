package scenarios

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
	List(ctx context.Context, tenantID string) ([]Scenario, error)
	Get(ctx context.Context, tenantID, id string) (Scenario, error)
}

// Service coordinates scenario reads and writes.
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

// List returns the tenant's scenarios, newest first. Storage failures yield
// an empty list.
func (s *Service) List(ctx context.Context) ([]Scenario, error) {
	p, err := s.guard.Require(ctx, authz.ActionSensitiveRead)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, p.TenantID)
	if err != nil {
		s.logger.Error("list scenarios", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return []Scenario{}, nil
	}
	if items == nil {
		items = []Scenario{}
	}
	return items, nil
}

// Get returns one scenario, or nil.
func (s *Service) Get(ctx context.Context, id string) (*Scenario, error) {
	p, err := s.guard.Require(ctx, authz.ActionSensitiveRead)
	if err != nil {
		return nil, err
	}
	if !tenant.ValidID(id) {
		return nil, nil
	}
	sc, err := s.repo.Get(ctx, p.TenantID, id)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			s.logger.Error("get scenario", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		}
		return nil, nil
	}
	return &sc, nil
}

// Create inserts a scenario and its salespeople atomically.
func (s *Service) Create(ctx context.Context, in Input) (*Scenario, error) {
	p, err := s.guard.Require(ctx, authz.ActionScenarioCreate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.NewValidationError(err)
	}

	var out Scenario
	err = s.repo.WithTx(ctx, p.TenantID, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.InsertScenario(ctx, in)
		if err != nil {
			return err
		}
		if len(in.Salespeople) > 0 {
			if err := tx.InsertSalespeople(ctx, created.ID, in.Salespeople); err != nil {
				return err
			}
		}
		out, err = tx.GetScenario(ctx, created.ID)
		return err
	})
	if err != nil {
		s.logger.Error("create scenario", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return nil, nil
	}
	return &out, nil
}

// Update applies a partial update. When Salespeople is set the existing
// salespeople are replaced in the same transaction. It returns nil when the
// scenario does not exist or the write fails.
func (s *Service) Update(ctx context.Context, id string, upd Update) (*Scenario, error) {
	p, err := s.guard.Require(ctx, authz.ActionScenarioUpdate)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(upd); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	if !tenant.ValidID(id) {
		return nil, nil
	}

	var out Scenario
	err = s.repo.WithTx(ctx, p.TenantID, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.UpdateScenario(ctx, id, upd); err != nil {
			return err
		}
		if upd.Salespeople != nil {
			if err := tx.DeleteSalespeople(ctx, id); err != nil {
				return err
			}
			if len(*upd.Salespeople) > 0 {
				if err := tx.InsertSalespeople(ctx, id, *upd.Salespeople); err != nil {
					return err
				}
			}
		}
		var err error
		out, err = tx.GetScenario(ctx, id)
		return err
	})
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			s.logger.Error("update scenario", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		}
		return nil, nil
	}
	return &out, nil
}

// Delete removes a scenario after its salespeople. It reports false when the
// scenario does not exist or the write fails.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	p, err := s.guard.Require(ctx, authz.ActionScenarioDelete)
	if err != nil {
		return false, err
	}
	if !tenant.ValidID(id) {
		return false, nil
	}

	var deleted bool
	err = s.repo.WithTx(ctx, p.TenantID, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteSalespeople(ctx, id); err != nil {
			return err
		}
		var err error
		deleted, err = tx.DeleteScenario(ctx, id)
		return err
	})
	if err != nil {
		s.logger.Error("delete scenario", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		return false, nil
	}
	return deleted, nil
}
