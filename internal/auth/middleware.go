package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDContextKey is the context key for storing user ID
	UserIDContextKey contextKey = "user_id"

	actorContextKey contextKey = "actor"
)

// ErrUserNotFound is returned by an ActorLoader for ids that no longer exist
var ErrUserNotFound = errors.New("user not found")

// ActorLoader fetches the full record of an authenticated user
type ActorLoader func(ctx context.Context, userID uuid.UUID) (*models.User, error)

// AuthMiddleware validates the session cookie and injects the user ID into context
// If the session is invalid, it clears the cookie and continues without authentication
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := GetSessionCookie(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ValidateToken(token, secret)
			if err != nil {
				log.Debug().Err(err).Msg("Invalid session token")
				ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDContextKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor rejects unauthenticated requests and loads the acting user.
// Authorization decisions always run against this freshly loaded record.
func RequireActor(load ActorLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == uuid.Nil {
				apperrors.WriteUnauthorized(w, r, "Authentication required")
				return
			}

			user, err := load(r.Context(), userID)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					ClearSessionCookie(w)
					apperrors.WriteUnauthorized(w, r, "Authentication required")
					return
				}
				log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to load session user")
				apperrors.WriteInternalError(w, r, "Failed to load session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), *user)))
		})
	}
}

// GetUserID retrieves the user ID from the request context
// Returns uuid.Nil if no user is authenticated
func GetUserID(ctx context.Context) uuid.UUID {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// WithActor stores the acting user in ctx
func WithActor(ctx context.Context, user models.User) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, user.ID)
	return context.WithValue(ctx, actorContextKey, user)
}

// GetActor returns the user loaded by RequireActor
func GetActor(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(actorContextKey).(models.User)
	return user, ok
}
