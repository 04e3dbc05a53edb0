// Package jobs defines the background tasks of bizops and the asynq worker
// that runs them.
package jobs

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskWebhookRetention purges processed webhook dedup rows.
	TaskWebhookRetention = "identity:webhook_retention"
	// TaskExportArchive uploads a tenant export to object storage.
	TaskExportArchive = "reporting:export_archive"
)

// WebhookRetentionPayload carries the retention window.
type WebhookRetentionPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewWebhookRetentionTask constructs the retention cleanup task.
func NewWebhookRetentionTask(retention time.Duration) (*asynq.Task, error) {
	if retention <= 0 {
		return nil, errors.New("jobs: retention must be positive")
	}
	body, err := json.Marshal(WebhookRetentionPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookRetention, body, asynq.Queue(QueueDefault)), nil
}

// ExportArchivePayload names the tenant to archive.
type ExportArchivePayload struct {
	TenantID string `json:"tenant_id"`
}

// NewExportArchiveTask constructs an export archive task for tenantID.
func NewExportArchiveTask(tenantID string) (*asynq.Task, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, errors.New("jobs: tenant id required")
	}
	body, err := json.Marshal(ExportArchivePayload{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportArchive, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}
