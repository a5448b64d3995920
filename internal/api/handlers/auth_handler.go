package handlers

import (
	"net/http"

	"github.com/isdelr/blog-api/internal/models"
	"github.com/isdelr/blog-api/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	service services.AuthServiceProvider
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload models.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.service.Register(r.Context(), payload)
	if err != nil {
		if models.KindOf(err) == models.KindConflict {
			log.Info().Str("username", payload.Username).Msg("Registration conflict")
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Login handles user authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload models.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.service.Login(r.Context(), payload)
	if err != nil {
		if models.KindOf(err) == models.KindAuth {
			log.Warn().Str("remote_addr", r.RemoteAddr).Msg("Failed authentication attempt")
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout acknowledges a logout. The client discards its token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Logout(r.Context()))
}
