package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/odyssey-erp/bizops/internal/platform/telemetry"
)

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
// The deferred rollback releases the transaction when fn fails, panics or the
// context is cancelled; after a successful commit it is a no-op.
func WithTx(ctx context.Context, db TxBeginner, fn func(pgx.Tx) error) error {
	return withOptions(ctx, db, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
}

// WithSnapshot runs fn inside a read-only RepeatableRead transaction so every
// statement observes the same snapshot.
func WithSnapshot(ctx context.Context, db TxBeginner, fn func(pgx.Tx) error) error {
	return withOptions(ctx, db, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func withOptions(ctx context.Context, db TxBeginner, opts pgx.TxOptions, fn func(pgx.Tx) error) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "db.tx")
	span.SetAttributes(
		attribute.String("db.isolation", string(opts.IsoLevel)),
		attribute.String("db.access_mode", string(opts.AccessMode)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transaction rolled back")
		}
		span.End()
	}()

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// WithReadCommitted runs fn in a ReadCommitted transaction. Statements issued
// after an explicit lock observe rows committed while waiting for it.
func WithReadCommitted(ctx context.Context, db TxBeginner, fn func(pgx.Tx) error) error {
	return withOptions(ctx, db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// Retry calls fn up to attempts times while it fails with a serialization
// failure or deadlock. Any other error is returned at once.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}
