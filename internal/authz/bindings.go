package authz

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/bizops/internal/platform/db"
)

// BindingStore reads durable role grants.
type BindingStore interface {
	BoundRoles(ctx context.Context, tenantID, principalID string) ([]Role, error)
}

// PostgresBindings reads auth_role_bindings. Each call is a fresh read.
type PostgresBindings struct {
	db db.DBTX
}

// NewPostgresBindings constructs PostgresBindings.
func NewPostgresBindings(conn db.DBTX) *PostgresBindings {
	return &PostgresBindings{db: conn}
}

// BoundRoles implements BindingStore. Slugs that are no longer known roles are skipped.
func (s *PostgresBindings) BoundRoles(ctx context.Context, tenantID, principalID string) ([]Role, error) {
	rows, err := s.db.Query(ctx, `SELECT role_slug FROM auth_role_bindings WHERE tenant_id = $1 AND principal_id = $2`, tenantID, principalID)
	if err != nil {
		return nil, fmt.Errorf("authz: bound roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("authz: scan role: %w", err)
		}
		if role, ok := ParseRole(slug); ok {
			roles = append(roles, role)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: bound roles: %w", err)
	}
	return roles, nil
}
