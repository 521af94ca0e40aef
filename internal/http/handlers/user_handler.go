package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	mw "github.com/verimart/verimart/internal/http/middleware"
	"github.com/verimart/verimart/internal/http/response"
)

// StartVerify issues a one-time verification code to the caller.
func (h *Handlers) StartVerify(w http.ResponseWriter, r *http.Request) {
	if err := h.accountService.StartVerification(r.Context(), mw.Username(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Verification code sent"})
}

// ConfirmVerify redeems a one-time code and grants VERIFIED.
func (h *Handlers) ConfirmVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.accountService.ConfirmVerification(r.Context(), mw.Username(r), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Account verified successfully"})
}

// ApplyAsSeller records a pending seller application for the caller.
func (h *Handlers) ApplyAsSeller(w http.ResponseWriter, r *http.Request) {
	if err := h.accountService.ApplyAsSeller(r.Context(), mw.Username(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Seller application recorded"})
}

// BuyItem reserves an available item for the caller.
func (h *Handlers) BuyItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid item ID")
		return
	}

	item, err := h.itemService.Buy(r.Context(), mw.Username(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, item)
}

// ListItems returns the full marketplace listing, newest first.
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, items)
}

// SellerID resolves the caller's seller profile id, if they have one.
func (h *Handlers) SellerID(w http.ResponseWriter, r *http.Request) {
	profile, err := h.itemService.SellerProfile(r.Context(), mw.Username(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if profile == nil {
		response.NotFound(w, "Seller not found")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]int64{"seller_id": profile.ID})
}
