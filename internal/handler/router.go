package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/flexylabel-order/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса приёма заказов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	if h.metrics != nil {
		r.Use(custommiddleware.Metrics(h.metrics))
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Get("/", h.Form)

	r.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.SubmitOrder)
		r.Get("/estimate", h.Estimate)
		r.Get("/materials", h.Materials)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
