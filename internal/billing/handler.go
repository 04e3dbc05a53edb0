package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizops/internal/authz"
	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// Handler serves transactions, register quotes and accounts over JSON.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	mw := authz.Middleware{Guard: h.service.guard, Logger: h.logger}
	r.Get("/transactions", h.listTransactions)
	r.With(mw.RequireAction(authz.ActionTransactionCreate)).Post("/transactions", h.createTransaction)
	r.With(mw.RequireAction(authz.ActionTransactionCreate)).Post("/transactions/quote", h.quote)
	r.Get("/accounts", h.listAccounts)
	r.With(mw.RequireAction(authz.ActionAccountCreate)).Post("/accounts", h.createAccount)
	r.With(mw.RequireAction(authz.ActionAccountUpdate)).Patch("/accounts/{id}", h.updateAccount)
	r.Delete("/accounts/{id}", h.deleteAccount)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListTransactions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var in TransactionInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.CreateTransaction(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusCreated, t, http.StatusInternalServerError)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var in QuoteInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.QuoteSale(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusOK, q, http.StatusNotFound)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAccounts(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var in AccountInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, err := h.service.CreateAccount(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusCreated, a, http.StatusInternalServerError)
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	var upd AccountUpdate
	if err := httpx.DecodeJSON(r, &upd); err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, err := h.service.UpdateAccount(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, http.StatusOK, a, http.StatusNotFound)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.DeleteAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Deleted(w, ok)
}
