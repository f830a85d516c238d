package apperrors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testDenial struct{ code, msg string }

func (d testDenial) Error() string       { return d.code }
func (d testDenial) Code() string        { return d.code }
func (d testDenial) UserMessage() string { return d.msg }

func TestWriteDenial(t *testing.T) {
	var got *http.Request
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		WriteDenial(w, r, testDenial{code: "not_owner", msg: "You can only edit tasks assigned to you"})
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/tasks/x", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var env ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "not_owner", env.Error.Code)
	require.Equal(t, "You can only edit tasks assigned to you", env.Error.Message)
	require.Equal(t, GetRequestID(got.Context()), env.Error.RequestID)
}

func TestRequestIDMiddleware_ReusesIncoming(t *testing.T) {
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, r, http.StatusOK, map[string]string{"id": GetRequestID(r.Context())})
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env struct {
		RequestID string            `json:"request_id"`
		Data      map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "abc-123", env.RequestID)
	require.Equal(t, "abc-123", env.Data["id"])
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	cases := []struct {
		name     string
		payload  string
		limit    int64
		wantOK   bool
		wantCode int
	}{
		{name: "valid", payload: `{"name":"a","count":2}`, limit: 1024, wantOK: true},
		{name: "syntax", payload: `{"name":`, limit: 1024, wantCode: http.StatusBadRequest},
		{name: "type", payload: `{"count":"two"}`, limit: 1024, wantCode: http.StatusBadRequest},
		{name: "too large", payload: `{"name":"` + strings.Repeat("x", 64) + `"}`, limit: 16, wantCode: http.StatusRequestEntityTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.payload))
			req.Body = http.MaxBytesReader(rec, req.Body, tc.limit)

			var dst body
			ok := DecodeJSON(rec, req, &dst)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				require.Equal(t, body{Name: "a", Count: 2}, dst)
				return
			}
			require.Equal(t, tc.wantCode, rec.Code)
		})
	}
}
