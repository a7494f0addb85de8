package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rentora/chatd/internal/auth"
)

// MintTokenRequest represents the development token request.
type MintTokenRequest struct {
	UserID int64  `json:"user_id"`
	TTL    string `json:"ttl,omitempty"` // Go duration, default 24h
}

// MintTokenResponse represents the development token response.
type MintTokenResponse struct {
	Token string `json:"token"`
}

// MintToken issues a handshake token for a user. Development only; the
// router never mounts it in production, where tokens come from the
// marketplace login flow.
func (h *Handler) MintToken(w http.ResponseWriter, r *http.Request) {
	var req MintTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID <= 0 {
		h.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	user, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if user == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	ttl := 24 * time.Hour
	if req.TTL != "" {
		if d, err := time.ParseDuration(req.TTL); err == nil && d > 0 {
			ttl = d
		}
	}

	token, err := auth.Mint(h.jwtSecret, user.ID, user.Name, ttl)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	h.JSON(w, http.StatusOK, MintTokenResponse{Token: token})
}
