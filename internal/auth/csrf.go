package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/aliuyar1234/tasktally/internal/apperrors"
)

const (
	// CSRFCookieName is the name of the CSRF cookie
	CSRFCookieName = "_csrf"

	// CSRFHeaderName carries the submitted token on API requests
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFTokenBytes is the number of random bytes for CSRF tokens
	CSRFTokenBytes = 32
)

// GenerateCSRFToken generates a cryptographically secure CSRF token
// Returns a base64url-encoded 32-byte random token
func GenerateCSRFToken() (string, error) {
	bytes := make([]byte, CSRFTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// SetCSRFCookie sets the CSRF token in a cookie
// Uses double-submit cookie pattern for CSRF protection
func SetCSRFCookie(w http.ResponseWriter, token string, isProduction bool) {
	cookie := &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // read by the client to echo it back in the header
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// GetCSRFCookie reads the CSRF token from the cookie
func GetCSRFCookie(r *http.Request) string {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// IsStateChanging reports whether the method must carry a CSRF token
func IsStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// ValidateCSRF validates the CSRF token using double-submit pattern
// Compares the token from the header with the token from the cookie
func ValidateCSRF(r *http.Request) error {
	cookieToken := GetCSRFCookie(r)
	if cookieToken == "" {
		return fmt.Errorf("missing CSRF cookie")
	}

	headerToken := r.Header.Get(CSRFHeaderName)
	if headerToken == "" {
		return fmt.Errorf("missing CSRF token in request")
	}

	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
		return fmt.Errorf("CSRF token mismatch")
	}

	return nil
}

// HandleCSRF handles GET /api/v1/auth/csrf.
// It issues a fresh token in both the cookie and the response body.
func HandleCSRF(isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := GenerateCSRFToken()
		if err != nil {
			apperrors.WriteInternalError(w, r, "Failed to issue CSRF token")
			return
		}
		SetCSRFCookie(w, token, isProduction)
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"csrf_token": token,
			"header":     CSRFHeaderName,
		})
	}
}
