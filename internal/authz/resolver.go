package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Request metadata headers read by HeaderResolver. The second name of each
// pair is the compatibility fallback.
const (
	HeaderClerkUserID = "X-Clerk-User-Id"
	HeaderUserID      = "X-User-Id"
	HeaderTenantID    = "X-Tenant-Id"
	HeaderClerkRoles  = "X-Clerk-Roles"
	HeaderUserRoles   = "X-User-Roles"
)

// Resolver produces the principal for the current call, or nil when the
// caller or tenant identity is absent. Implementations never fail.
type Resolver interface {
	ResolvePrincipal(ctx context.Context) *Principal
}

type metadataKey struct{}

// ContextWithMetadata stores trusted inbound request metadata in ctx.
func ContextWithMetadata(ctx context.Context, md http.Header) context.Context {
	return context.WithValue(ctx, metadataKey{}, md.Clone())
}

// MetadataFromContext returns the metadata stored by ContextWithMetadata.
func MetadataFromContext(ctx context.Context) http.Header {
	md, _ := ctx.Value(metadataKey{}).(http.Header)
	return md
}

func firstHeader(md http.Header, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(md.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// HeaderResolver reads the principal from request metadata headers.
type HeaderResolver struct{}

// ResolvePrincipal implements Resolver.
func (HeaderResolver) ResolvePrincipal(ctx context.Context) *Principal {
	md := MetadataFromContext(ctx)
	if md == nil {
		return nil
	}
	userID := firstHeader(md, HeaderClerkUserID, HeaderUserID)
	tenantID := firstHeader(md, HeaderTenantID)
	if userID == "" || tenantID == "" {
		return nil
	}
	return &Principal{
		UserID:     userID,
		TenantID:   tenantID,
		ClaimRoles: ParseRoleList(firstHeader(md, HeaderClerkRoles, HeaderUserRoles)),
	}
}

// FixedResolver always returns the same principal. It replaces the header
// path entirely, for tests and the admin CLI.
type FixedResolver struct {
	Principal *Principal
}

// ResolvePrincipal implements Resolver.
func (r FixedResolver) ResolvePrincipal(context.Context) *Principal {
	if r.Principal == nil {
		return nil
	}
	p := *r.Principal
	p.ClaimRoles = append([]Role(nil), r.Principal.ClaimRoles...)
	return &p
}

// Claims is the bearer token payload accepted by JWTResolver.
type Claims struct {
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTResolver resolves the principal from an HS256 bearer token and defers to
// Next when no Authorization header is present. An invalid token resolves to
// nil rather than falling through.
type JWTResolver struct {
	secret []byte
	issuer string
	next   Resolver
}

// NewJWTResolver builds a JWTResolver. next may be nil.
func NewJWTResolver(secret, issuer string, next Resolver) (*JWTResolver, error) {
	if secret == "" {
		return nil, errors.New("authz: jwt secret required")
	}
	return &JWTResolver{secret: []byte(secret), issuer: issuer, next: next}, nil
}

// ResolvePrincipal implements Resolver.
func (r *JWTResolver) ResolvePrincipal(ctx context.Context) *Principal {
	md := MetadataFromContext(ctx)
	raw := ""
	if md != nil {
		raw = md.Get("Authorization")
	}
	token, ok := strings.CutPrefix(raw, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		if r.next == nil {
			return nil
		}
		return r.next.ResolvePrincipal(ctx)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return nil
	}
	return &Principal{
		UserID:     claims.Subject,
		TenantID:   claims.TenantID,
		ClaimRoles: ParseRoleList(strings.Join(claims.Roles, ",")),
	}
}
