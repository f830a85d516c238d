package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRequireActor(t *testing.T) {
	userID := uuid.New()
	secret := "test-secret"
	token, err := CreateToken(userID, secret, 1)
	require.NoError(t, err)

	var seen models.User
	handler := AuthMiddleware(secret)(RequireActor(func(ctx context.Context, id uuid.UUID) (*models.User, error) {
		if id != userID {
			return nil, ErrUserNotFound
		}
		return &models.User{ID: id, Role: models.RoleStaff}, nil
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		require.True(t, ok)
		seen = actor
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("no session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, userID, seen.ID)
	})

	t.Run("deleted user", func(t *testing.T) {
		other, err := CreateToken(uuid.New(), secret, 1)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: other})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("loader failure", func(t *testing.T) {
		failing := AuthMiddleware(secret)(RequireActor(func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			return nil, errors.New("db down")
		})(http.NotFoundHandler()))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		rec := httptest.NewRecorder()
		failing.ServeHTTP(rec, req)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestValidateCSRF(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.Error(t, ValidateCSRF(req))

	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc"})
	require.Error(t, ValidateCSRF(req))

	req.Header.Set(CSRFHeaderName, "abd")
	require.Error(t, ValidateCSRF(req))

	req.Header.Set(CSRFHeaderName, "abc")
	require.NoError(t, ValidateCSRF(req))

	require.True(t, IsStateChanging(http.MethodPatch))
	require.False(t, IsStateChanging(http.MethodGet))
}
