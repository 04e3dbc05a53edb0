package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/billing"
	"github.com/odyssey-erp/bizops/internal/businessdata"
	"github.com/odyssey-erp/bizops/internal/customers"
	"github.com/odyssey-erp/bizops/internal/identity"
	"github.com/odyssey-erp/bizops/internal/inventory"
	"github.com/odyssey-erp/bizops/internal/observability"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
	"github.com/odyssey-erp/bizops/internal/reporting"
	"github.com/odyssey-erp/bizops/internal/scenarios"
	"github.com/odyssey-erp/bizops/internal/tenant"
	"github.com/odyssey-erp/bizops/jobs"
)

// RouterParams groups dependencies for building the HTTP router. Nil handlers
// are not mounted.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	Ready   Readiness

	AuthzMiddleware     authz.Middleware
	TenantHandler       *tenant.Handler
	BusinessDataHandler *businessdata.Handler
	ScenarioHandler     *scenarios.Handler
	InventoryHandler    *inventory.Handler
	CustomerHandler     *customers.Handler
	BillingHandler      *billing.Handler
	ReportingHandler    *reporting.Handler
	IdentityHandler     *identity.Handler
	JobHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with bizops defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", params.Ready.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(api chi.Router) {
		if params.TenantHandler != nil {
			api.Get("/tenant", params.TenantHandler.Current)
		}
		if params.AuthzMiddleware.Guard != nil {
			api.With(params.AuthzMiddleware.RequireAction(authz.ActionSensitiveRead)).Get("/principal", currentPrincipal)
		}
		if params.BusinessDataHandler != nil {
			params.BusinessDataHandler.MountRoutes(api)
		}
		if params.ScenarioHandler != nil {
			params.ScenarioHandler.MountRoutes(api)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(api)
		}
		if params.CustomerHandler != nil {
			params.CustomerHandler.MountRoutes(api)
		}
		if params.BillingHandler != nil {
			params.BillingHandler.MountRoutes(api)
		}
		if params.ReportingHandler != nil {
			params.ReportingHandler.MountRoutes(api)
		}
		if params.IdentityHandler != nil {
			params.IdentityHandler.MountRoutes(api)
		}
	})

	return r
}

func currentPrincipal(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, &authz.AuthenticationError{Reason: "principal"})
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
