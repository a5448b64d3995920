package handlers

import (
	"net/http"

	"github.com/isdelr/blog-api/internal/auth"
	"github.com/isdelr/blog-api/internal/models"
	"github.com/isdelr/blog-api/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles requests about the authenticated user's own account.
type UserHandler struct {
	service services.AuthServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.AuthServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// GetMe returns the user resolved from the bearer token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		writeError(w, r, models.NewAuthError(models.MsgInvalidToken))
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// UpdateMe handles updating the caller's profile information.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, models.NewAuthError(models.MsgInvalidToken))
		return
	}

	var payload models.UpdateUserRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), user.ID, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteMe soft-deletes the caller's account.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, models.NewAuthError(models.MsgInvalidToken))
		return
	}

	if err := h.service.DeleteAccount(r.Context(), user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
