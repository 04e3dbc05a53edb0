package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/billing"
	"github.com/odyssey-erp/bizops/internal/customers"
	"github.com/odyssey-erp/bizops/internal/inventory"
)

// Source produces tenant snapshots.
type Source interface {
	Snapshot(ctx context.Context, tenantID string) (Export, error)
}

// Uploader stores archived exports.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Enqueuer schedules an archive of a tenant export.
type Enqueuer interface {
	EnqueueExportArchive(ctx context.Context, tenantID string) error
}

// Service builds exports for authorised callers and archives them for the
// background worker.
type Service struct {
	source   Source
	guard    authz.Authorizer
	uploader Uploader
	enqueuer Enqueuer
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises Service.
type Option func(*Service)

// WithUploader enables Archive.
func WithUploader(u Uploader) Option { return func(s *Service) { s.uploader = u } }

// WithEnqueuer enables RequestArchive.
func WithEnqueuer(e Enqueuer) Option { return func(s *Service) { s.enqueuer = e } }

// NewService builds Service. guard may be nil for worker-only use.
func NewService(source Source, guard authz.Authorizer, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{source: source, guard: guard, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export returns the caller's tenant export, or nil when it cannot be read.
func (s *Service) Export(ctx context.Context) (*Export, error) {
	p, err := s.guard.Require(ctx, authz.ActionReportingExport)
	if err != nil {
		return nil, err
	}
	out, err := s.Build(ctx, p.TenantID)
	if err != nil {
		s.logger.Error("export", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return nil, nil
	}
	return &out, nil
}

// Build reads the export of tenantID without an authorisation check. It is
// for trusted callers such as the worker and the admin CLI.
func (s *Service) Build(ctx context.Context, tenantID string) (Export, error) {
	out, err := s.source.Snapshot(ctx, tenantID)
	if err != nil {
		return Export{}, err
	}
	out.GeneratedAt = s.now().UTC()
	normalise(&out)
	return out, nil
}

// RequestArchive schedules an archive of the caller's tenant. It reports
// false when no queue is configured or enqueueing fails.
func (s *Service) RequestArchive(ctx context.Context) (bool, error) {
	p, err := s.guard.Require(ctx, authz.ActionReportingExport)
	if err != nil {
		return false, err
	}
	if s.enqueuer == nil {
		return false, nil
	}
	if err := s.enqueuer.EnqueueExportArchive(ctx, p.TenantID); err != nil {
		s.logger.Error("enqueue export archive", slog.String("tenant_id", p.TenantID), slog.Any("error", err))
		return false, nil
	}
	return true, nil
}

// Archive builds the export of tenantID and uploads it. It returns the object
// key.
func (s *Service) Archive(ctx context.Context, tenantID string) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("reporting: archive: no uploader configured")
	}
	out, err := s.Build(ctx, tenantID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("reporting: encode export: %w", err)
	}
	key := ArchiveKey(out.TenantID, out.GeneratedAt)
	if err := s.uploader.Put(ctx, key, data, "application/json"); err != nil {
		return "", err
	}
	s.logger.Info("export archived", slog.String("tenant_id", out.TenantID), slog.String("key", key), slog.Int("bytes", len(data)))
	return key, nil
}

// ArchiveKey names the object for an export generated at ts.
func ArchiveKey(tenantID string, ts time.Time) string {
	return fmt.Sprintf("exports/%s/%s.json", tenantID, ts.UTC().Format("20060102T150405Z"))
}

func normalise(e *Export) {
	if e.Inventory == nil {
		e.Inventory = []inventory.Item{}
	}
	if e.Customers == nil {
		e.Customers = []customers.Customer{}
	}
	if e.Transactions == nil {
		e.Transactions = []billing.Transaction{}
	}
	if e.Accounts == nil {
		e.Accounts = []billing.Account{}
	}
}
