package businessdata

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// Handler serves business data over JSON.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers the business data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	mw := authz.Middleware{Guard: h.service.guard, Logger: h.logger}
	r.Get("/business-data", h.get)
	r.With(mw.RequireAction(authz.ActionBusinessDataWrite)).Post("/business-data", h.save)
	r.Post("/business-data/initialize", h.initialize)
	r.With(mw.RequireAction(authz.ActionBusinessDataWrite)).Patch("/business-data/{id}", h.update)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusOK, b, http.StatusNotFound)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Save(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusCreated, b, http.StatusInternalServerError)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var upd Update
	if err := httpx.DecodeJSON(r, &upd); err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusOK, b, http.StatusNotFound)
}

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.InitializeDefaults(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusOK, b, http.StatusInternalServerError)
}
