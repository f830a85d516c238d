package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/aliuyar1234/tasktally/internal/audit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	IsApproved bool      `json:"is_approved"`
}

// HandleLogin handles POST /api/v1/auth/login
func HandleLogin(pool *pgxpool.Pool, auditor *audit.Writer, jwtSecret string, sessionDays int, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req LoginRequest
		if !apperrors.DecodeJSON(w, r, &req) {
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || req.Password == "" {
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		var userID uuid.UUID
		var passwordHash string
		var approved bool
		err := pool.QueryRow(ctx, `
			SELECT id, password_hash, is_approved FROM users WHERE email = $1
		`, email).Scan(&userID, &passwordHash, &approved)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				log.Debug().Str("email", email).Msg("Login failed: user not found")
				logLoginFailed(r, auditor, email)
				apperrors.WriteUnauthorized(w, r, "Invalid credentials")
				return
			}
			log.Error().Err(err).Str("email", email).Msg("Failed to query user")
			apperrors.WriteInternalError(w, r, "Login failed")
			return
		}

		if err := VerifyPassword(passwordHash, req.Password); err != nil {
			log.Debug().Str("email", email).Msg("Login failed: wrong password")
			logLoginFailed(r, auditor, email)
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		if err := StartSession(w, userID, jwtSecret, sessionDays, isProduction); err != nil {
			log.Error().Err(err).Msg("Failed to create token")
			apperrors.WriteInternalError(w, r, "Failed to create session")
			return
		}

		log.Info().
			Str("user_id", userID.String()).
			Bool("approved", approved).
			Msg("User logged in successfully")

		apperrors.WriteSuccess(w, r, http.StatusOK, LoginResponse{
			UserID:     userID,
			Email:      email,
			IsApproved: approved,
		})
	}
}

// HandleLogout handles POST /api/v1/auth/logout
func HandleLogout(isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ClearSessionCookie(w)

		if userID := GetUserID(r.Context()); userID != uuid.Nil {
			log.Info().Str("user_id", userID.String()).Msg("User logged out")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"logged_out": true,
		})
	}
}

// HandleMe handles GET /api/v1/auth/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		apperrors.WriteUnauthorized(w, r, "Authentication required")
		return
	}
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
		"user": actor,
	})
}

// StartSession issues a session token for userID and sets the cookie
func StartSession(w http.ResponseWriter, userID uuid.UUID, jwtSecret string, sessionDays int, isProduction bool) error {
	token, err := CreateToken(userID, jwtSecret, sessionDays)
	if err != nil {
		return err
	}
	SetSessionCookie(w, token, sessionDays, isProduction)
	return nil
}

func logLoginFailed(r *http.Request, auditor *audit.Writer, email string) {
	if err := auditor.LogLoginFailed(r.Context(), email, r.RemoteAddr); err != nil {
		log.Error().Err(err).Msg("Failed to log audit event")
	}
}
