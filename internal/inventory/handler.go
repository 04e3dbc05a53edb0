package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// Handler serves inventory over JSON.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	mw := authz.Middleware{Guard: h.service.guard, Logger: h.logger}
	r.Get("/inventory", h.list)
	r.With(mw.RequireAction(authz.ActionInventoryCreate)).Post("/inventory", h.create)
	r.With(mw.RequireAction(authz.ActionInventoryUpdate)).Patch("/inventory/{id}", h.update)
	r.Delete("/inventory/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusCreated, item, http.StatusInternalServerError)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var upd Update
	if err := httpx.DecodeJSON(r, &upd); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusOK, item, http.StatusNotFound)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Deleted(w, ok)
}
