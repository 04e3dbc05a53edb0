package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// ErrNotConfigured is returned when no signing secret is configured.
var ErrNotConfigured = errors.New("identity: webhook signing secret is not configured")

// Store opens the transaction used for one delivery.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}

// Tx is the transactional writer for one delivery.
type Tx interface {
	// RecordEvent inserts the dedup row. It reports false when the event id
	// was already recorded.
	RecordEvent(ctx context.Context, eventID, eventType string) (bool, error)
	UpsertUser(ctx context.Context, u User, eventID string) error
	SoftDeleteUser(ctx context.Context, clerkUserID, eventID string) error
	MarkProcessed(ctx context.Context, eventID string) error
}

// Result is the acknowledgement returned to the provider.
type Result struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// Service verifies and applies webhook deliveries.
type Service struct {
	verifier *Verifier
	store    Store
	metrics  *Metrics
	logger   *slog.Logger
}

// NewService builds Service. A nil verifier makes every delivery fail with
// ErrNotConfigured.
func NewService(verifier *Verifier, store Store, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{verifier: verifier, store: store, metrics: metrics, logger: logger}
}

// Ingest verifies the delivery, records its event id and applies the user
// change in one transaction. A redelivered event id is acknowledged as a
// duplicate without further writes. Processing errors are returned so the
// provider retries the delivery.
func (s *Service) Ingest(ctx context.Context, payload []byte, headers http.Header) (Result, error) {
	if s.verifier == nil {
		return Result{}, ErrNotConfigured
	}
	eventID, err := s.verifier.Verify(headers, payload)
	if err != nil {
		s.metrics.observe("", outcomeRejected)
		s.logger.Warn("webhook rejected", slog.Any("error", err))
		return Result{}, err
	}
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil || evt.Type == "" {
		s.metrics.observe("", outcomeRejected)
		return Result{}, &httpx.ValidationError{Fields: map[string]string{"body": "malformed event envelope"}}
	}
	var user UserData
	if len(evt.Data) > 0 {
		if err := json.Unmarshal(evt.Data, &user); err != nil {
			s.metrics.observe(evt.Type, outcomeRejected)
			return Result{}, &httpx.ValidationError{Fields: map[string]string{"data": "malformed user payload"}}
		}
	}
	if (evt.Type == EventUserCreated || evt.Type == EventUserUpdated) && strings.TrimSpace(user.ID) == "" {
		s.metrics.observe(evt.Type, outcomeRejected)
		return Result{}, &httpx.ValidationError{Fields: map[string]string{"data.id": "required"}}
	}

	duplicate := false
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		fresh, err := tx.RecordEvent(ctx, eventID, evt.Type)
		if err != nil {
			return err
		}
		if !fresh {
			duplicate = true
			return nil
		}
		switch evt.Type {
		case EventUserCreated, EventUserUpdated:
			if err := tx.UpsertUser(ctx, user.user(), eventID); err != nil {
				return err
			}
		case EventUserDeleted:
			if user.ID != "" {
				if err := tx.SoftDeleteUser(ctx, user.ID, eventID); err != nil {
					return err
				}
			}
		}
		return tx.MarkProcessed(ctx, eventID)
	})
	if err != nil {
		s.metrics.observe(evt.Type, outcomeFailed)
		s.logger.Error("webhook processing failed", slog.String("event_id", eventID), slog.String("type", evt.Type), slog.Any("error", err))
		return Result{}, err
	}
	if duplicate {
		s.metrics.observe(evt.Type, outcomeDuplicate)
		return Result{Received: true, Duplicate: true}, nil
	}
	s.metrics.observe(evt.Type, outcomeProcessed)
	s.logger.Info("webhook processed", slog.String("event_id", eventID), slog.String("type", evt.Type))
	return Result{Received: true}, nil
}
