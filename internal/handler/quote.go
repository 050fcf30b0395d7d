package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xenking/bookstore-pricing/internal/domain/pricing"
)

type quoteRequest struct {
	Username string             `json:"username"`
	Lines    []quoteRequestLine `json:"lines"`
}

type quoteRequestLine struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

type quoteResponse struct {
	ID                  string              `json:"id"`
	Username            string              `json:"username"`
	Lines               []quoteLineResponse `json:"lines"`
	Subtotal            float64             `json:"subtotal"`
	Shipping            float64             `json:"shipping"`
	ShippingWaived      bool                `json:"shippingWaived"`
	ShippingUnavailable bool                `json:"shippingUnavailable"`
	Total               float64             `json:"total"`
}

type quoteLineResponse struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Quantity   int     `json:"quantity"`
	Subtotal   float64 `json:"subtotal"`
	DiscountID int64   `json:"discountId,omitempty"`
}

// PriceQuote prices an order for a customer, consuming discount usage.
func (h *Handler) PriceQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		writeError(w, r, http.StatusBadRequest, "username required")
		return
	}

	lines := make([]pricing.LineRequest, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = pricing.LineRequest{Title: l.Title, Quantity: l.Quantity}
	}

	q, err := h.pricing.PriceOrder(r.Context(), pricing.PriceOrderRequest{
		Username: req.Username,
		Lines:    lines,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, quoteToResponse(q))
}

func quoteToResponse(q *pricing.Quote) quoteResponse {
	lines := make([]quoteLineResponse, len(q.Lines))
	for i, l := range q.Lines {
		lines[i] = quoteLineResponse{
			Title:      l.Title,
			Author:     l.Author,
			Quantity:   l.Quantity,
			Subtotal:   l.Subtotal.Round(2).InexactFloat64(),
			DiscountID: l.DiscountID,
		}
	}
	return quoteResponse{
		ID:                  q.ID,
		Username:            q.Username,
		Lines:               lines,
		Subtotal:            q.Subtotal.Round(2).InexactFloat64(),
		Shipping:            q.Shipping.Round(2).InexactFloat64(),
		ShippingWaived:      q.ShippingWaived,
		ShippingUnavailable: q.ShippingUnavailable,
		Total:               q.Total.InexactFloat64(),
	}
}
