package identity

import (
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
	"github.com/odyssey-erp/bizops/internal/platform/validate"
)

// HeaderRoleSyncSecret carries the shared secret of the role-sync endpoint.
const HeaderRoleSyncSecret = "x-role-sync-secret"

const maxPayloadBytes = 1 << 20

// RoleSyncRequest is the body of the role-sync endpoint.
type RoleSyncRequest struct {
	ClerkUserID string              `json:"clerkUserId" validate:"required,max=255"`
	TenantRoles []authz.TenantRoles `json:"tenantRoles" validate:"dive"`
}

// Handler serves the webhook and role-sync endpoints. Neither goes through
// the principal guard; both authenticate with shared secrets.
type Handler struct {
	service        *Service
	syncer         *authz.Syncer
	roleSyncSecret string
	validate       *validator.Validate
	logger         *slog.Logger
}

// NewHandler constructs Handler. An empty roleSyncSecret disables role sync.
func NewHandler(service *Service, syncer *authz.Syncer, roleSyncSecret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, syncer: syncer, roleSyncSecret: roleSyncSecret, validate: validate.New(), logger: logger}
}

// MountRoutes registers identity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/webhooks/clerk", h.webhook)
	r.Post("/clerk/sync-roles", h.syncRoles)
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unreadable body")
		return
	}
	res, err := h.service.Ingest(r.Context(), payload, r.Header)
	var sigErr *SignatureError
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, res)
	case errors.Is(err, ErrNotConfigured):
		httpx.Problem(w, http.StatusInternalServerError, "Misconfigured", "webhook signing secret is not configured")
	case errors.As(err, &sigErr):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Signature", sigErr.Reason)
	case errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Webhook Processing Failed", "")
	}
}

func (h *Handler) syncRoles(w http.ResponseWriter, r *http.Request) {
	if h.roleSyncSecret == "" || h.syncer == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Misconfigured", "role sync secret is not configured")
		return
	}
	given := r.Header.Get(HeaderRoleSyncSecret)
	if given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.roleSyncSecret)) != 1 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req RoleSyncRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.syncer.Sync(r.Context(), req.ClerkUserID, req.TenantRoles); err != nil {
		if errors.Is(err, httpx.ErrValidation) {
			httpx.RespondError(w, err)
			return
		}
		h.logger.Error("role sync failed", slog.String("principal_id", req.ClerkUserID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Role Sync Failed", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
