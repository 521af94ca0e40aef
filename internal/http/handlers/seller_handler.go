package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/verimart/verimart/internal/domain"
	mw "github.com/verimart/verimart/internal/http/middleware"
	"github.com/verimart/verimart/internal/http/response"
)

// CreateItem lists a new item for the calling seller.
func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	item, err := h.itemService.Create(r.Context(), mw.Username(r), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, item)
}

// SellerItems lists the calling seller's own items.
func (h *Handlers) SellerItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.SellerItems(r.Context(), mw.Username(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, items)
}

// SellItem finalizes a reserved item owned by the caller.
func (h *Handlers) SellItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid item ID")
		return
	}

	item, err := h.itemService.Sell(r.Context(), mw.Username(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, item)
}

// DenySale returns a reserved item owned by the caller to the market.
func (h *Handlers) DenySale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid item ID")
		return
	}

	item, err := h.itemService.Deny(r.Context(), mw.Username(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, item)
}
