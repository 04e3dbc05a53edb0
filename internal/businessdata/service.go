package businessdata

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

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Latest(ctx context.Context, tenantID string) (BusinessData, error)
	Insert(ctx context.Context, tenantID string, in Input) (BusinessData, error)
	Update(ctx context.Context, tenantID, id string, upd Update) (BusinessData, error)
	LatestOrInsert(ctx context.Context, tenantID string, defaults Input) (BusinessData, error)
}

// Service exposes business data operations. Authentication, authorization
// and validation failures are returned as errors; storage failures are
// logged and reported as a nil result.
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

// Get returns the current baseline, or nil when none is saved.
func (s *Service) Get(ctx context.Context) (*BusinessData, error) {
	p, err := s.guard.Require(ctx, authz.ActionSensitiveRead)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.Latest(ctx, p.TenantID)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			s.logger.Error("fetch business data", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		}
		return nil, nil
	}
	return &b, nil
}

// Save stores a new baseline.
func (s *Service) Save(ctx context.Context, in Input) (*BusinessData, error) {
	p, err := s.guard.Require(ctx, authz.ActionBusinessDataWrite)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	b, err := s.repo.Insert(ctx, p.TenantID, in)
	if err != nil {
		s.logger.Error("save business data", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return nil, nil
	}
	return &b, nil
}

// Update changes a saved baseline. It returns nil when id does not belong to
// the tenant.
func (s *Service) Update(ctx context.Context, id string, upd Update) (*BusinessData, error) {
	p, err := s.guard.Require(ctx, authz.ActionBusinessDataWrite)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(upd); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	if !tenant.ValidID(id) {
		return nil, nil
	}
	b, err := s.repo.Update(ctx, p.TenantID, id, upd)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			s.logger.Error("update business data", slog.String("tenant_id", p.TenantID), slog.String("id", id), slog.Any("error", err))
		}
		return nil, nil
	}
	return &b, nil
}

// InitializeDefaults returns the current baseline, creating the default one
// for a tenant that has none.
func (s *Service) InitializeDefaults(ctx context.Context) (*BusinessData, error) {
	p, err := s.guard.Require(ctx, authz.ActionBusinessDataWrite)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.LatestOrInsert(ctx, p.TenantID, Defaults())
	if err != nil {
		s.logger.Error("initialize business data", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return nil, nil
	}
	return &b, nil
}
