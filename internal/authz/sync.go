package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// BindingSource marks bindings written by role sync.
const BindingSource = "clerk_private_metadata"

// TenantRoles is the declared role set of one principal in one tenant.
type TenantRoles struct {
	TenantID string   `json:"tenantId" validate:"required"`
	Roles    []string `json:"roles"`
}

// SyncStore opens the transaction used by Syncer.
type SyncStore interface {
	WithTx(ctx context.Context, fn func(context.Context, SyncTx) error) error
}

// SyncTx is the transactional binding writer.
type SyncTx interface {
	DeleteForPrincipal(ctx context.Context, principalID string) error
	UpsertBinding(ctx context.Context, tenantID, principalID string, role Role, source string) error
}

// Syncer replaces a principal's bindings with a declared set.
type Syncer struct {
	store SyncStore
}

// NewSyncer constructs a Syncer.
func NewSyncer(store SyncStore) *Syncer {
	return &Syncer{store: store}
}

// Sync deletes every binding of principalID across all tenants and inserts
// one binding per declared (tenant, role) pair, in one transaction. Roles
// absent from the payload are revoked. Unknown role slugs fail validation
// before anything is written.
func (s *Syncer) Sync(ctx context.Context, principalID string, tenantRoles []TenantRoles) error {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return &httpx.ValidationError{Fields: map[string]string{"clerkUserId": "is required"}}
	}
	type grant struct {
		tenantID string
		role     Role
	}
	var grants []grant
	for i, tr := range tenantRoles {
		tenantID := strings.TrimSpace(tr.TenantID)
		if tenantID == "" {
			return &httpx.ValidationError{Fields: map[string]string{
				fmt.Sprintf("tenantRoles[%d].tenantId", i): "is required",
			}}
		}
		for j, raw := range tr.Roles {
			role, ok := ParseRole(raw)
			if !ok {
				return &httpx.ValidationError{Fields: map[string]string{
					fmt.Sprintf("tenantRoles[%d].roles[%d]", i, j): "unknown role " + raw,
				}}
			}
			grants = append(grants, grant{tenantID: tenantID, role: role})
		}
	}

	return s.store.WithTx(ctx, func(ctx context.Context, tx SyncTx) error {
		if err := tx.DeleteForPrincipal(ctx, principalID); err != nil {
			return err
		}
		for _, g := range grants {
			if err := tx.UpsertBinding(ctx, g.tenantID, principalID, g.role, BindingSource); err != nil {
				return err
			}
		}
		return nil
	})
}

// PostgresSyncStore writes auth_role_bindings.
type PostgresSyncStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSyncStore constructs PostgresSyncStore.
func NewPostgresSyncStore(pool *pgxpool.Pool) *PostgresSyncStore {
	return &PostgresSyncStore{pool: pool}
}

// WithTx implements SyncStore.
func (s *PostgresSyncStore) WithTx(ctx context.Context, fn func(context.Context, SyncTx) error) error {
	if s == nil || s.pool == nil {
		return errors.New("authz: sync store not initialised")
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, pgSyncTx{tx: tx})
	})
}

type pgSyncTx struct {
	tx pgx.Tx
}

func (t pgSyncTx) DeleteForPrincipal(ctx context.Context, principalID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM auth_role_bindings WHERE principal_id = $1`, principalID); err != nil {
		return fmt.Errorf("authz: delete bindings: %w", err)
	}
	return nil
}

func (t pgSyncTx) UpsertBinding(ctx context.Context, tenantID, principalID string, role Role, source string) error {
	const q = `INSERT INTO auth_role_bindings (tenant_id, principal_id, role_slug, source)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id, principal_id, role_slug) DO UPDATE
SET source = EXCLUDED.source, updated_at = NOW()`
	if _, err := t.tx.Exec(ctx, q, tenantID, principalID, string(role), source); err != nil {
		return fmt.Errorf("authz: upsert binding: %w", err)
	}
	return nil
}
