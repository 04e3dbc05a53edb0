package authz

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

type principalKey struct{}

// ContextWithPrincipal stores an authorized principal.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by RequireAction.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// CaptureMetadata copies the inbound headers into the request context so
// resolvers can read them without an *http.Request.
func CaptureMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(ContextWithMetadata(r.Context(), r.Header)))
	})
}

// Middleware wires guard checks for HTTP routes. Mounting RequireAction on a
// route that reads a body makes 401 and 403 win over 400.
type Middleware struct {
	Guard  Authorizer
	Logger *slog.Logger
}

// RequireAction rejects the request with 401 or 403 unless action is granted,
// and stores the authorized principal in the request context.
func (m Middleware) RequireAction(action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := m.Guard.Require(r.Context(), action)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Debug("authz require action", slog.String("action", string(action)), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}
