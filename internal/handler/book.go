package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/bookstore-pricing/internal/domain/book"
)

type bookResponse struct {
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	UnitPrice float64 `json:"unitPrice"`
}

// ListBooks returns the catalog, optionally narrowed to a single author via
// the author query parameter.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	var (
		books []book.Book
		err   error
	)
	if author := r.URL.Query().Get("author"); author != "" {
		books, err = h.books.ListByAuthor(r.Context(), author)
	} else {
		books, err = h.books.List(r.Context())
	}
	if err != nil {
		respondError(w, r, errors.Wrap(err, "list books"))
		return
	}

	out := make([]bookResponse, len(books))
	for i, b := range books {
		out[i] = bookResponse{
			Title:     b.Title,
			Author:    b.Author,
			UnitPrice: b.UnitPrice.InexactFloat64(),
		}
	}
	writeJSON(w, r, http.StatusOK, out)
}

type assignmentResponse struct {
	DiscountID int64   `json:"discountId"`
	Kind       string  `json:"kind"`
	PercentOff float64 `json:"percentOff"`
	Remaining  int     `json:"remaining"`
	ValidFrom  string  `json:"validFrom"`
	ValidUntil string  `json:"validUntil"`
	Author     string  `json:"author,omitempty"`
}

// ListCustomerDiscounts returns a customer's wallet in insertion order.
func (h *Handler) ListCustomerDiscounts(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	c, err := h.customers.GetByUsername(r.Context(), username)
	if err != nil {
		respondError(w, r, err)
		return
	}

	assignments := c.Assignments()
	out := make([]assignmentResponse, len(assignments))
	for i, a := range assignments {
		out[i] = assignmentResponse{
			DiscountID: a.TemplateID,
			Kind:       string(a.Kind),
			PercentOff: a.PercentOff.InexactFloat64(),
			Remaining:  a.Remaining,
			ValidFrom:  a.ValidFrom.Format("2006-01-02 15:04:05"),
			ValidUntil: a.ValidUntil.Format("2006-01-02 15:04:05"),
			Author:     a.Author,
		}
	}
	writeJSON(w, r, http.StatusOK, out)
}
