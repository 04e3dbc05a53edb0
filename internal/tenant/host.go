package tenant

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Host headers, in lookup priority order.
const (
	HeaderTenantHost    = "X-Tenant-Host"
	HeaderForwardedHost = "X-Forwarded-Host"
)

// NormalizeHost strips any port and lowercases host. It returns "" for an
// empty host.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	return strings.ToLower(host)
}

// RequestHost picks the host a tenant lookup should use.
func RequestHost(r *http.Request) string {
	for _, v := range []string{r.Header.Get(HeaderTenantHost), r.Header.Get(HeaderForwardedHost), r.Host} {
		if strings.TrimSpace(v) != "" {
			return NormalizeHost(v)
		}
	}
	return ""
}

// LookupDomain maps a normalized host to the tenant_domains key. Local hosts
// collapse to "<first label>.localhost"; subdomains of rootDomain keep their
// subdomain unless it is www; everything else is returned unchanged.
func LookupDomain(host, rootDomain string) string {
	if host == "localhost" || host == "127.0.0.1" || strings.HasSuffix(host, ".localhost") {
		parts := strings.Split(host, ".")
		if len(parts) > 1 && parts[len(parts)-1] == "localhost" {
			return parts[0] + ".localhost"
		}
		return "localhost"
	}

	if rootDomain != "" && strings.HasSuffix(host, "."+rootDomain) {
		sub := strings.TrimSuffix(host, "."+rootDomain)
		if sub != "" && sub != "www" {
			return sub + "." + rootDomain
		}
		return rootDomain
	}

	return host
}

// ValidID reports whether id is a well-formed row id. Malformed ids can never
// match a row, so callers treat them as not found.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
