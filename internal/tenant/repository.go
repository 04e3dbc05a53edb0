// Package tenant binds data access to a single tenant and resolves tenants
// from request hosts.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// ErrNoTenant is returned when a repository is built without a tenant id.
var ErrNoTenant = errors.New("tenant: tenant id required")

// Table selects one tenant-scoped table. Name, Columns and OrderBy are
// compile-time constants owned by the calling package; they are never built
// from request input.
type Table struct {
	Name    string
	Columns string
	OrderBy string
}

// RowScanner decodes one row selected with Table.Columns.
type RowScanner[T any] func(pgx.Row) (T, error)

// Repository issues statements that are always filtered by one tenant.
// Statements passed to Exec, Query and QueryRow receive the tenant id as $1;
// caller arguments start at $2.
type Repository struct {
	db       db.DBTX
	tenantID string
}

// NewRepository binds conn to tenantID for the lifetime of the repository.
// conn may be a pool or a transaction.
func NewRepository(conn db.DBTX, tenantID string) (*Repository, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrNoTenant
	}
	return &Repository{db: conn, tenantID: tenantID}, nil
}

// TenantID returns the bound tenant.
func (r *Repository) TenantID() string { return r.tenantID }

// WithConn returns a repository for the same tenant on a different
// connection, typically a transaction.
func (r *Repository) WithConn(conn db.DBTX) *Repository {
	return &Repository{db: conn, tenantID: r.tenantID}
}

// Exec runs sql with the tenant id prepended to args.
func (r *Repository) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, sql, r.args(args)...)
}

// Query runs sql with the tenant id prepended to args.
func (r *Repository) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return r.db.Query(ctx, sql, r.args(args)...)
}

// QueryRow runs sql with the tenant id prepended to args.
func (r *Repository) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return r.db.QueryRow(ctx, sql, r.args(args)...)
}

func (r *Repository) args(args []any) []any {
	out := make([]any, 0, len(args)+1)
	out = append(out, r.tenantID)
	return append(out, args...)
}

// DeleteByID removes one row of t. It reports false when no row of the bound
// tenant has that id.
func (r *Repository) DeleteByID(ctx context.Context, t Table, id string) (bool, error) {
	tag, err := r.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND id = $2`, t.Name), id)
	if err != nil {
		return false, fmt.Errorf("tenant: delete %s: %w", t.Name, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteWhere removes every row of t whose column equals value. column must be
// a constant of the calling package.
func (r *Repository) DeleteWhere(ctx context.Context, t Table, column string, value any) (int64, error) {
	tag, err := r.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND %s = $2`, t.Name, column), value)
	if err != nil {
		return 0, fmt.Errorf("tenant: delete %s by %s: %w", t.Name, column, err)
	}
	return tag.RowsAffected(), nil
}

// List returns every row of t for the bound tenant.
func List[T any](ctx context.Context, r *Repository, t Table, scan RowScanner[T]) ([]T, error) {
	return ListWhere(ctx, r, t, "", nil, scan)
}

// ListWhere returns the rows of t matching an extra predicate. filter is a
// constant SQL fragment whose placeholders start at $2.
func ListWhere[T any](ctx context.Context, r *Repository, t Table, filter string, args []any, scan RowScanner[T]) ([]T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1`, t.Columns, t.Name)
	if filter != "" {
		query += " AND " + filter
	}
	if t.OrderBy != "" {
		query += " ORDER BY " + t.OrderBy
	}
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tenant: list %s: %w", t.Name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("tenant: scan %s: %w", t.Name, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tenant: list %s: %w", t.Name, err)
	}
	return out, nil
}

// GetByID returns one row of t. A row owned by another tenant is reported as
// httpx.ErrNotFound, exactly like a missing row.
func GetByID[T any](ctx context.Context, r *Repository, t Table, id string, scan RowScanner[T]) (T, error) {
	return getByID(ctx, r, t, id, "", scan)
}

// GetByIDForUpdate is GetByID with a row lock held until the surrounding
// transaction ends.
func GetByIDForUpdate[T any](ctx context.Context, r *Repository, t Table, id string, scan RowScanner[T]) (T, error) {
	return getByID(ctx, r, t, id, " FOR UPDATE", scan)
}

func getByID[T any](ctx context.Context, r *Repository, t Table, id, suffix string, scan RowScanner[T]) (T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1 AND id = $2%s`, t.Columns, t.Name, suffix)
	item, err := scan(r.QueryRow(ctx, query, id))
	if err != nil {
		var zero T
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, httpx.ErrNotFound
		}
		return zero, fmt.Errorf("tenant: get %s: %w", t.Name, err)
	}
	return item, nil
}
