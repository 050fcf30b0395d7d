package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-pricing/internal/domain/book"
	"github.com/xenking/bookstore-pricing/internal/domain/customer"
	"github.com/xenking/bookstore-pricing/internal/domain/discount"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("Encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}

// respondError maps domain errors onto HTTP statuses. Unexpected errors are
// logged and reported as a bare 500 without leaking internals.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, book.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, discount.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, customer.ErrEmptyOrder),
		errors.Is(err, customer.ErrInvalidQuantity),
		errors.Is(err, customer.ErrNoOrder),
		errors.Is(err, discount.ErrInvalidCoupon):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
