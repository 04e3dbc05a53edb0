package reporting

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// Handler serves exports over JSON.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reporting/export", h.export)
	r.Post("/reporting/export/archive", h.archive)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Export(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusOK, out, http.StatusInternalServerError)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.RequestArchive(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !ok {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "export archive queue unavailable")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}
