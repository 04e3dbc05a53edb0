package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// Context identifies the tenant served on a host.
type Context struct {
	TenantID   string `json:"tenantId"`
	TenantSlug string `json:"tenantSlug"`
	Domain     string `json:"domain"`
}

// Resolver maps request hosts to active tenants.
type Resolver struct {
	db         db.DBTX
	rootDomain string
}

// NewResolver constructs a Resolver.
func NewResolver(conn db.DBTX, rootDomain string) *Resolver {
	return &Resolver{db: conn, rootDomain: NormalizeHost(rootDomain)}
}

// Resolve returns the active tenant registered for host. An unknown or
// inactive domain yields httpx.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, host string) (Context, error) {
	host = NormalizeHost(host)
	if host == "" {
		return Context{}, &httpx.ValidationError{Fields: map[string]string{"host": "is required"}}
	}
	domain := LookupDomain(host, r.rootDomain)

	const q = `SELECT t.id, t.slug, td.domain
FROM tenant_domains td
INNER JOIN tenants t ON t.id = td.tenant_id
WHERE td.domain = $1 AND t.is_active = TRUE
LIMIT 1`
	var tc Context
	if err := r.db.QueryRow(ctx, q, domain).Scan(&tc.TenantID, &tc.TenantSlug, &tc.Domain); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Context{}, httpx.ErrNotFound
		}
		return Context{}, fmt.Errorf("tenant: resolve %s: %w", domain, err)
	}
	return tc, nil
}

// Handler serves the tenant resolved for the request host.
type Handler struct {
	resolver *Resolver
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(resolver *Resolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{resolver: resolver, logger: logger}
}

// Current responds with the tenant for the request host.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	tc, err := h.resolver.Resolve(r.Context(), RequestHost(r))
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrValidation) {
			h.logger.Error("tenant resolve", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tc)
}
