package auth

import "net/http"

// SessionCookieName is the name of the session cookie
const SessionCookieName = "tt_session"

func sessionCookie(value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSessionCookie stores the session token. Secure is set in production.
func SetSessionCookie(w http.ResponseWriter, token string, sessionDays int, isProduction bool) {
	http.SetCookie(w, sessionCookie(token, sessionDays*24*60*60, isProduction))
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie("", -1, false))
}

// GetSessionCookie returns the session token or ""
func GetSessionCookie(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
