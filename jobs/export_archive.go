package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/bizops/internal/jobs"
)

// Archiver builds and uploads a tenant export.
type Archiver interface {
	Archive(ctx context.Context, tenantID string) (string, error)
}

// ExportArchiveJob uploads tenant exports on request.
type ExportArchiveJob struct {
	Archiver Archiver
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewExportArchiveJob wires dependencies for the archive handler.
func NewExportArchiveJob(archiver Archiver, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExportArchiveJob {
	return &ExportArchiveJob{Archiver: archiver, Logger: logger, Metrics: metrics}
}

// Handle processes export archive tasks.
func (j *ExportArchiveJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Archiver == nil {
		return errors.New("export archive: handler not configured")
	}
	var payload ExportArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.TenantID == "" {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskExportArchive)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("tenant_id", payload.TenantID))
	key, err := j.Archiver.Archive(ctx, payload.TenantID)
	if err != nil {
		logger.Error("archive export", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskExportArchive, 1)
	logger.Info("export archived", slog.String("key", key))
	return nil
}
