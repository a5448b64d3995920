package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/isdelr/blog-api/internal/models"
	"github.com/rs/zerolog/log"
)

// contextKey is the context key type for the authenticated user.
type contextKey string

const userContextKey = contextKey("authUser")

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// UserFromContext returns the user stored by Middleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok && user != nil
}

// ContextWithUser stores user in ctx.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware protects routes with a bearer token.
func Middleware(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := BearerToken(r)
			if tokenStr == "" {
				writeUnauthorized(w)
				return
			}

			user, err := authn.Authenticate(r.Context(), tokenStr)
			if err != nil {
				if models.KindOf(err) == models.KindInternal {
					log.Error().Err(err).Msg("Failed to authenticate bearer token")
					writeJSON(w, http.StatusInternalServerError, models.MessageResponse{Message: models.MsgInternal})
					return
				}
				writeUnauthorized(w)
				return
			}

			log.Debug().Int64("user_id", user.ID).Msg("Authenticated request")
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, models.MessageResponse{Message: models.MsgInvalidToken})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
