package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func NewRouter(h *Handler, log zerolog.Logger, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.addProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})
		r.Route("/tables", func(r chi.Router) {
			r.Get("/", h.listTables)
			r.Post("/", h.addTable)
			r.Delete("/{id}", h.removeTable)
			r.Get("/{id}/order", h.openOrderByTable)
			r.Post("/{id}/items", h.addItem)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Patch("/{id}/items/{productID}", h.updateItemQuantity)
			r.Post("/{id}/close", h.closeTable)
			r.Delete("/{id}", h.cancelOrder)
		})
		r.Get("/waiters", h.listWaiters)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/sales", h.salesReport)
			r.Get("/products", h.productReport)
			r.Get("/commissions", h.commissionReport)
			r.Get("/summary", h.summaryReport)
		})
	})

	return r
}
