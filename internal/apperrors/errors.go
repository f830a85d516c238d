package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the error envelope
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// SuccessResponse is the success envelope
type SuccessResponse struct {
	RequestID string `json:"request_id"`
	Data      any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Str("request_id", GetRequestID(r.Context())).Msg("Failed to write response body")
	}
}

// WriteError writes an error response in the standard envelope format
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	writeJSON(w, r, statusCode, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message, RequestID: GetRequestID(r.Context())},
	})
}

// WriteSuccess writes a success response in the standard envelope format
func WriteSuccess(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	writeJSON(w, r, statusCode, SuccessResponse{RequestID: GetRequestID(r.Context()), Data: data})
}

// DecodeJSON decodes the request body into dst. On failure it writes 413 when
// the body exceeded the size limit, 400 otherwise, and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &maxErr):
		WriteError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("Request body must not exceed %d bytes", maxErr.Limit))
	case errors.As(err, &typeErr) && typeErr.Field != "":
		WriteBadRequest(w, r, fmt.Sprintf("Invalid value for %s", typeErr.Field))
	case errors.As(err, &syntaxErr):
		WriteBadRequest(w, r, "Request body is not valid JSON")
	default:
		WriteBadRequest(w, r, "Invalid request body")
	}
	return false
}

func WriteServiceUnavailable(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusServiceUnavailable, "service_unavailable", message)
}

func WriteInternalError(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusInternalServerError, "internal_error", message)
}

func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnauthorized, "unauthorized", message)
}

func WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusConflict, "conflict", message)
}

func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusTooManyRequests, "too_many_requests", message)
}

// WriteGone writes a 410 with a caller-chosen code
func WriteGone(w http.ResponseWriter, r *http.Request, code, message string) {
	WriteError(w, r, http.StatusGone, code, message)
}

// Denial is an authorization refusal that knows its reason code and user-facing message
type Denial interface {
	error
	Code() string
	UserMessage() string
}

// WriteDenial writes a 403 whose code is the denial reason.
func WriteDenial(w http.ResponseWriter, r *http.Request, d Denial) {
	log.Warn().
		Str("reason", d.Code()).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("request_id", GetRequestID(r.Context())).
		Msg("RBAC: action denied")

	WriteError(w, r, http.StatusForbidden, d.Code(), d.UserMessage())
}
