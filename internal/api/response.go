package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JoshuaSLim/Finance/internal/auth"
	"github.com/JoshuaSLim/Finance/internal/logger"
	"github.com/JoshuaSLim/Finance/internal/models"
)

const (
	codeInvalidRequest     = "invalid_request"
	codeInvalidCredentials = "invalid_credentials"
)

var statusByCode = map[string]int{
	"invalid_symbol":       http.StatusBadRequest,
	"invalid_share_count":  http.StatusBadRequest,
	"invalid_direction":    http.StatusBadRequest,
	codeInvalidRequest:     http.StatusBadRequest,
	"unknown_symbol":       http.StatusNotFound,
	"not_found":            http.StatusNotFound,
	"insufficient_funds":   http.StatusUnprocessableEntity,
	"insufficient_shares":  http.StatusUnprocessableEntity,
	"username_taken":       http.StatusConflict,
	codeInvalidCredentials: http.StatusUnauthorized,
	"quote_unavailable":    http.StatusServiceUnavailable,
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes data as a JSON response with the given status
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes the standard {error, message} body
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeErr maps err onto its wire code and status. Unrecognised errors become
// a 500 whose message does not leak internals.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := errorCode(err)
	status, ok := statusByCode[code]
	if !ok {
		logger.FromContext(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	WriteError(w, status, code, err.Error())
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidRegistration):
		return codeInvalidRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return codeInvalidCredentials
	}
	return models.ErrorCode(err)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.New("request body must be valid JSON")
	}
	return nil
}
