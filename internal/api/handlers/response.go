package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/isdelr/blog-api/internal/models"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response body")
	}
}

// writeError maps err to exactly one status code and a client-safe message.
// Internal causes are logged here and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := models.AsAppError(err)

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case models.KindValidation:
		status = http.StatusBadRequest
	case models.KindConflict:
		status = http.StatusConflict
	case models.KindAuth:
		status = http.StatusUnauthorized
	default:
		log.Error().Err(appErr.Err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed with internal error")
		writeJSON(w, status, models.MessageResponse{Message: models.MsgInternal})
		return
	}

	writeJSON(w, status, models.MessageResponse{Message: appErr.Message})
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return models.NewValidationError(models.MsgInvalidBody)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return models.NewValidationError(models.MsgInvalidBody)
	}
	return nil
}
