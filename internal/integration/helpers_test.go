package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/aliuyar1234/tasktally/internal/app"
	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

type envelopeResponse struct {
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                       "dev",
		HTTPAddr:                  ":0",
		BaseURL:                   "http://localhost",
		DBDSN:                     "unused",
		JWTSecret:                 "test-secret",
		LogLevel:                  "error",
		RateLimitRPM:              1000,
		LoginRateLimitRPM:         1000,
		MaxBodyBytes:              1 << 20,
		CORSOrigins:               []string{"http://localhost"},
		SessionDays:               7,
		DefaultCurrency:           "PHP",
		DueSoonThreshold:          24 * time.Hour,
		DueSoonSchedule:           "*/15 * * * *",
		RetentionSchedule:         "30 3 * * *",
		NotificationRetentionDays: 90,
	}
}

func newTestServer(t *testing.T, pool *pgxpool.Pool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(app.NewRouter(pool, testConfig()))
	t.Cleanup(srv.Close)
	return srv
}

// apiClient is one browser session: its own cookie jar and CSRF token
type apiClient struct {
	t    *testing.T
	http *http.Client
	base string
	csrf string
}

func newClient(t *testing.T, srv *httptest.Server) *apiClient {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	baseURL, err := url.Parse(srv.URL)
	require.NoError(t, err)

	csrfToken, err := auth.GenerateCSRFToken()
	require.NoError(t, err)
	jar.SetCookies(baseURL, []*http.Cookie{{Name: auth.CSRFCookieName, Value: csrfToken, Path: "/"}})

	return &apiClient{t: t, http: &http.Client{Jar: jar}, base: srv.URL, csrf: csrfToken}
}

func (c *apiClient) do(method, path string, wantStatus int, payload any) envelopeResponse {
	c.t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.base+path, body)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.CSRFHeaderName, c.csrf)

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	require.Equal(c.t, wantStatus, resp.StatusCode, "%s %s: %s", method, path, string(raw))

	var env envelopeResponse
	require.NoError(c.t, json.Unmarshal(raw, &env))
	return env
}

func (c *apiClient) decode(env envelopeResponse, out any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(env.Data, out))
}

func (c *apiClient) expectDenied(method, path string, payload any, code string) {
	c.t.Helper()
	env := c.do(method, path, http.StatusForbidden, payload)
	require.NotNil(c.t, env.Error)
	require.Equal(c.t, code, env.Error.Code)
}

// signupSuperAdmin registers an account and promotes it the way the admin CLI does.
func signupSuperAdmin(t *testing.T, pool *pgxpool.Pool, c *apiClient, email string) {
	t.Helper()

	c.do(http.MethodPost, "/api/v1/auth/signup", http.StatusCreated, map[string]any{
		"email":    email,
		"password": "password123",
		"name":     "Admin",
	})

	_, err := pool.Exec(context.Background(), `
		UPDATE users SET role = 'super_admin', is_approved = TRUE WHERE email = $1
	`, email)
	require.NoError(t, err)
}

type idOnly struct {
	ID string `json:"id"`
}
