package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/karthikambaragonda/Capstone-Project-sub000/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/user/cart", h.GetCart)
			r.Post("/user/cart", h.AddToCart)
			r.Delete("/user/cart/{productID}", h.RemoveFromCart)

			r.Post("/user/checkout", h.Checkout)

			r.Get("/user/orders", h.GetOrders)
			r.Get("/user/orders/{id}", h.GetOrderItems)
			r.Post("/user/orders/{id}/cancel", h.CancelOrder)

			r.Get("/user/rewards", h.GetRewards)
			r.Get("/user/rewards/history", h.GetRewardHistory)
			r.Post("/user/rewards/spin", h.DailySpin)

			r.Get("/user/alerts", h.GetAlerts)
			r.Post("/user/alerts", h.CreateAlert)
			r.Delete("/user/alerts/{id}", h.DeleteAlert)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
