package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/bizops/internal/jobs"
)

// EventPurger deletes processed webhook dedup rows.
type EventPurger interface {
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// WebhookRetentionJob removes processed dedup rows older than the retention
// window. Pending rows are never removed.
type WebhookRetentionJob struct {
	Purger  EventPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewWebhookRetentionJob wires dependencies for the retention handler.
func NewWebhookRetentionJob(purger EventPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *WebhookRetentionJob {
	return &WebhookRetentionJob{
		Purger:  purger,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes retention tasks.
func (j *WebhookRetentionJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Purger == nil {
		return errors.New("webhook retention: handler not configured")
	}
	var payload WebhookRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Retention <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskWebhookRetention)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	cutoff := j.clock().Add(-payload.Retention)
	purged, err := j.Purger.PurgeProcessedBefore(ctx, cutoff)
	if err != nil {
		j.logger().Error("purge webhook events", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskWebhookRetention, int(purged))
	j.logger().Info("purged webhook events", slog.Int64("rows", purged), slog.Time("cutoff", cutoff))
	return nil
}

func (j *WebhookRetentionJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
