package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/verimart/verimart/internal/domain"
	mw "github.com/verimart/verimart/internal/http/middleware"
	"github.com/verimart/verimart/internal/http/response"
)

// Register handles new account creation; every account starts with the
// default capability set.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "User registered successfully",
		"username": user.Username,
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, resp)
}

// Attributes returns the caller's own capability tags.
func (h *Handlers) Attributes(w http.ResponseWriter, r *http.Request) {
	names, err := h.authService.Attributes(r.Context(), mw.Username(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"attributes": names})
}

// CheckAttribute reports whether the caller holds one named attribute.
func (h *Handlers) CheckAttribute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Attribute string `json:"attribute"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Attribute == "" {
		response.BadRequest(w, "Attribute is required")
		return
	}

	ok, err := h.authService.HasAttribute(r.Context(), mw.Username(r), req.Attribute)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAttribute) {
			response.BadRequest(w, "Unknown attribute")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	if !ok {
		response.Forbidden(w, "User is not permitted")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "User is permitted"})
}
