package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizops/internal/platform/db"
)

// PostgresStore writes clerk_webhook_events and app_users.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// WithTx implements Store. The transaction is ReadCommitted so a delivery
// racing a concurrent copy of itself sees the committed dedup row as a
// conflict instead of failing serialization.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return db.WithReadCommitted(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, pgTx{tx: tx})
	})
}

// PurgeProcessedBefore deletes processed dedup rows older than cutoff and
// returns how many were removed. Pending rows are kept.
func (s *PostgresStore) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM clerk_webhook_events WHERE status = 'processed' AND processed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("identity: purge events: %w", err)
	}
	return tag.RowsAffected(), nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) RecordEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	const q = `INSERT INTO clerk_webhook_events (clerk_event_id, event_type)
VALUES ($1, $2)
ON CONFLICT (clerk_event_id) DO NOTHING
RETURNING id`
	var id string
	err := t.tx.QueryRow(ctx, q, eventID, eventType).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("identity: record event: %w", err)
	}
	return true, nil
}

func (t pgTx) UpsertUser(ctx context.Context, u User, eventID string) error {
	const q = `INSERT INTO app_users (clerk_user_id, email, first_name, last_name, image_url, last_webhook_event_id, deleted_at)
VALUES ($1, $2, $3, $4, $5, $6, NULL)
ON CONFLICT (clerk_user_id) DO UPDATE SET
	email = EXCLUDED.email,
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	image_url = EXCLUDED.image_url,
	last_webhook_event_id = EXCLUDED.last_webhook_event_id,
	deleted_at = NULL,
	updated_at = NOW()`
	if _, err := t.tx.Exec(ctx, q, u.ClerkUserID, u.Email, u.FirstName, u.LastName, u.ImageURL, eventID); err != nil {
		return fmt.Errorf("identity: upsert user: %w", err)
	}
	return nil
}

func (t pgTx) SoftDeleteUser(ctx context.Context, clerkUserID, eventID string) error {
	const q = `UPDATE app_users
SET deleted_at = NOW(), last_webhook_event_id = $2, updated_at = NOW()
WHERE clerk_user_id = $1`
	if _, err := t.tx.Exec(ctx, q, clerkUserID, eventID); err != nil {
		return fmt.Errorf("identity: soft delete user: %w", err)
	}
	return nil
}

func (t pgTx) MarkProcessed(ctx context.Context, eventID string) error {
	const q = `UPDATE clerk_webhook_events SET status = 'processed', processed_at = NOW() WHERE clerk_event_id = $1`
	if _, err := t.tx.Exec(ctx, q, eventID); err != nil {
		return fmt.Errorf("identity: mark processed: %w", err)
	}
	return nil
}
