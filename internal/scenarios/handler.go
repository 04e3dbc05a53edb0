package scenarios

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// Handler serves scenarios over JSON.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers the scenario routes.
func (h *Handler) MountRoutes(r chi.Router) {
	mw := authz.Middleware{Guard: h.service.guard, Logger: h.logger}
	r.Get("/scenarios", h.list)
	r.With(mw.RequireAction(authz.ActionScenarioCreate)).Post("/scenarios", h.create)
	r.Get("/scenarios/{id}", h.show)
	r.With(mw.RequireAction(authz.ActionScenarioUpdate)).Patch("/scenarios/{id}", h.update)
	r.Delete("/scenarios/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	sc, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusOK, sc, http.StatusNotFound)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sc, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusCreated, sc, http.StatusInternalServerError)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var upd Update
	if err := httpx.DecodeJSON(r, &upd); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sc, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusOK, sc, http.StatusNotFound)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Deleted(w, ok)
}
