package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"cafe-system/internal/cache"
	"cafe-system/internal/domain"
	"cafe-system/internal/pos"
	"cafe-system/internal/reports"
	"cafe-system/internal/store"
)

type Handler struct {
	pos   *pos.Service
	cache *cache.Cache
	st    store.Store
	log   zerolog.Logger
}

func NewHandler(p *pos.Service, c *cache.Cache, st store.Store, log zerolog.Logger) *Handler {
	return &Handler{pos: p, cache: c, st: st, log: log}
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrTableNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrWaiterNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrOrderNotOpen),
		errors.Is(err, domain.ErrTableBusy):
		status = http.StatusConflict
	case errors.Is(err, store.ErrTxConflict):
		status = http.StatusConflict
		resp.Retryable = true
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed json body"})
		return false
	}
	return true
}

// --- products ---

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.pos.Products(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if !h.decode(w, r, &p) {
		return
	}
	created, err := h.pos.AddProduct(r.Context(), p)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if !h.decode(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	updated, err := h.pos.UpdateProduct(r.Context(), p)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.pos.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- tables ---

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.pos.Tables(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tables)
}

func (h *Handler) addTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.pos.AddTable(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, table)
}

func (h *Handler) removeTable(w http.ResponseWriter, r *http.Request) {
	if err := h.pos.RemoveTable(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) openOrderByTable(w http.ResponseWriter, r *http.Request) {
	order, err := h.pos.OpenOrderByTable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	WaiterID  string `json:"waiter_id"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.pos.AddItemToOrder(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.WaiterID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// --- orders ---

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.pos.Orders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.pos.Order(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.pos.UpdateItemQuantity(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

type closeTableRequest struct {
	PaymentMethod string `json:"payment_method"`
}

func (h *Handler) closeTable(w http.ResponseWriter, r *http.Request) {
	var req closeTableRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.PaymentMethod == "" {
		h.writeError(w, fmt.Errorf("payment_method is required: %w", domain.ErrInvalidInput))
		return
	}
	order, err := h.pos.CloseTable(r.Context(), chi.URLParam(r, "id"), req.PaymentMethod)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.pos.CancelOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- waiters ---

func (h *Handler) listWaiters(w http.ResponseWriter, r *http.Request) {
	waiters, err := h.pos.Waiters(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, waiters)
}

// --- reports (served from the live snapshot) ---

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, reports.SalesByDay(h.cache.Orders()))
}

func (h *Handler) productReport(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, reports.SalesByProduct(h.cache.Orders()))
}

func (h *Handler) commissionReport(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, reports.Commissions(h.cache.Orders(), h.cache.Waiters()))
}

func (h *Handler) summaryReport(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, reports.BuildSummary(h.cache.Orders(), h.cache.Products(), h.cache.Tables()))
}

// --- health ---

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.st.Ping(r.Context()); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"cause":  err.Error(),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
