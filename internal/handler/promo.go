package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type promotionRequest struct {
	DiscountID int64  `json:"discountId"`
	Location   string `json:"location,omitempty"`
	Author     string `json:"author,omitempty"`
}

type promotionResponse struct {
	Rule    string `json:"rule"`
	Granted int    `json:"granted"`
}

// RunPromotion executes a named assignment rule over the whole customer base.
// Rule names: tenure, seasonal, location, author, all.
func (h *Handler) RunPromotion(w http.ResponseWriter, r *http.Request) {
	rule := chi.URLParam(r, "rule")

	var req promotionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var (
		granted int
		err     error
	)
	switch rule {
	case "tenure":
		granted, err = h.promo.RunTenure(r.Context(), req.DiscountID)
	case "seasonal":
		granted, err = h.promo.RunSeasonal(r.Context(), req.DiscountID)
	case "location":
		if req.Location == "" {
			writeError(w, r, http.StatusBadRequest, "location required")
			return
		}
		granted, err = h.promo.RunLocation(r.Context(), req.DiscountID, req.Location)
	case "author":
		if req.Author == "" {
			writeError(w, r, http.StatusBadRequest, "author required")
			return
		}
		granted, err = h.promo.RunAuthor(r.Context(), req.DiscountID, req.Author)
	case "all":
		granted, err = h.promo.RunAll(r.Context())
	default:
		writeError(w, r, http.StatusNotFound, "unknown rule "+rule)
		return
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, promotionResponse{Rule: rule, Granted: granted})
}

type redeemRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// RedeemCoupon grants a coupon discount to a customer's wallet.
func (h *Handler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Code == "" {
		writeError(w, r, http.StatusBadRequest, "username and code required")
		return
	}

	if err := h.promo.Redeem(r.Context(), req.Username, req.Code); err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "redeemed"})
}
