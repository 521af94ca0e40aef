package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/verimart/verimart/internal/domain"
	"github.com/verimart/verimart/internal/http/response"
)

// CreateAdmin provisions a new administrator account.
func (h *Handlers) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.adminService.CreateAdmin(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Admin created successfully",
		"username": user.Username,
	})
}

// ApproveSeller promotes a pending applicant to seller.
func (h *Handlers) ApproveSeller(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	sellerID, err := h.adminService.ApproveSeller(r.Context(), req.Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Seller approved",
		"seller_id": sellerID,
	})
}

// RevokeSeller removes a user's seller rights; their profile and items remain.
func (h *Handlers) RevokeSeller(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.adminService.RevokeSeller(r.Context(), req.Username); err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Seller rights removed"})
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, users)
}

func (h *Handlers) ListSellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := h.adminService.ListSellers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, sellers)
}
