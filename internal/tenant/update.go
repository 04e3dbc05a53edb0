package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// Assignments is the SET list of a partial update. Columns come from the
// calling package's enumerated update struct, never from request keys.
type Assignments struct {
	columns []string
	values  []any
}

// Set assigns value to column.
func (a *Assignments) Set(column string, value any) {
	a.columns = append(a.columns, column)
	a.values = append(a.values, value)
}

// Len reports the number of assigned columns.
func (a Assignments) Len() int { return len(a.columns) }

// UpdateByID applies set to one row of t and returns the updated row. With an
// empty set it returns the current row. updated_at is always refreshed.
func UpdateByID[T any](ctx context.Context, r *Repository, t Table, id string, set Assignments, scan RowScanner[T]) (T, error) {
	if set.Len() == 0 {
		return GetByID(ctx, r, t, id, scan)
	}
	parts := make([]string, 0, set.Len()+1)
	for i, col := range set.columns {
		parts = append(parts, fmt.Sprintf("%s = $%d", col, i+3))
	}
	parts = append(parts, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE tenant_id = $1 AND id = $2 RETURNING %s`,
		t.Name, strings.Join(parts, ", "), t.Columns)
	args := append([]any{id}, set.values...)

	item, err := scan(r.QueryRow(ctx, query, args...))
	if err != nil {
		var zero T
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, httpx.ErrNotFound
		}
		return zero, fmt.Errorf("tenant: update %s: %w", t.Name, err)
	}
	return item, nil
}
