// Package handler exposes the pricing system over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/bookstore-pricing/internal/domain/book"
	"github.com/xenking/bookstore-pricing/internal/domain/customer"
	"github.com/xenking/bookstore-pricing/internal/domain/pricing"
	"github.com/xenking/bookstore-pricing/internal/domain/promo"
)

// Handler wires the HTTP routes to the domain services.
type Handler struct {
	books     book.Repository
	customers customer.Repository
	pricing   *pricing.Service
	promo     *promo.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	books book.Repository,
	customers customer.Repository,
	pricingSvc *pricing.Service,
	promoSvc *promo.Service,
) *Handler {
	return &Handler{
		books:     books,
		customers: customers,
		pricing:   pricingSvc,
		promo:     promoSvc,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/books", h.ListBooks)
		r.Get("/customers/{username}/discounts", h.ListCustomerDiscounts)
		r.Post("/quotes", h.PriceQuote)
		r.Post("/coupons/redeem", h.RedeemCoupon)
		r.Post("/promotions/{rule}", h.RunPromotion)
	})

	return r
}
