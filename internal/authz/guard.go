package authz

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/odyssey-erp/bizops/internal/platform/telemetry"
)

const (
	outcomeAllowed         = "allowed"
	outcomeDenied          = "denied"
	outcomeUnauthenticated = "unauthenticated"
	outcomeError           = "error"
)

// Authorizer is the guard contract consumed by domain services.
type Authorizer interface {
	Require(ctx context.Context, action Action) (Principal, error)
}

// Guard authorizes actions for the principal of the current call.
type Guard struct {
	resolver Resolver
	bindings BindingStore
	logger   *slog.Logger
	metrics  *Metrics
}

// GuardOption customises a Guard.
type GuardOption func(*Guard)

// WithLogger sets the logger used for denials.
func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

// WithMetrics records decisions on m.
func WithMetrics(m *Metrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// NewGuard constructs a Guard. The resolver decides where identity comes
// from; tests pass a FixedResolver.
func NewGuard(resolver Resolver, bindings BindingStore, opts ...GuardOption) *Guard {
	g := &Guard{resolver: resolver, bindings: bindings, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require returns the principal when one of its effective roles grants
// action. It fails with *AuthenticationError when no principal resolves and
// with *AuthorizationError when no effective role grants the action. Bindings
// are read on every call.
func (g *Guard) Require(ctx context.Context, action Action) (Principal, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "authz.require")
	defer span.End()
	span.SetAttributes(attribute.String("authz.action", string(action)))

	principal := g.resolver.ResolvePrincipal(ctx)
	if principal == nil {
		g.metrics.observe(action, outcomeUnauthenticated)
		span.SetStatus(codes.Error, outcomeUnauthenticated)
		return Principal{}, &AuthenticationError{Reason: "missing user or tenant identity"}
	}
	span.SetAttributes(attribute.String("authz.tenant", principal.TenantID))

	bound, err := g.bindings.BoundRoles(ctx, principal.TenantID, principal.UserID)
	if err != nil {
		g.metrics.observe(action, outcomeError)
		span.RecordError(err)
		return Principal{}, fmt.Errorf("authz: load bindings: %w", err)
	}

	effective := EffectiveRoles(principal.ClaimRoles, bound)
	if !AnyRoleHasAction(effective, action) {
		g.metrics.observe(action, outcomeDenied)
		span.SetStatus(codes.Error, outcomeDenied)
		g.logger.Warn("authz denied",
			slog.String("action", string(action)),
			slog.String("tenant_id", principal.TenantID),
			slog.String("user_id", principal.UserID),
		)
		return Principal{}, &AuthorizationError{Action: action}
	}

	g.metrics.observe(action, outcomeAllowed)
	return *principal, nil
}
