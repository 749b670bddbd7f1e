// Package httputil provides shared HTTP response helpers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// StatusError is implemented by errors that know their HTTP status.
type StatusError interface {
	error
	StatusCode() int
}

// Hinter is implemented by errors that carry a user-facing suggestion.
type Hinter interface {
	Hint() string
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteText writes a plain body with the given content type.
func WriteText(w http.ResponseWriter, status int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, ErrorResponse{Error: errCode, Message: message})
}

// WriteErr writes err using its StatusCode and Hint when it provides them,
// and 500 otherwise.
func WriteErr(w http.ResponseWriter, errCode string, err error) {
	status := http.StatusInternalServerError
	var se StatusError
	if errors.As(err, &se) {
		status = se.StatusCode()
	}
	resp := ErrorResponse{Error: errCode, Message: err.Error()}
	var h Hinter
	if errors.As(err, &h) {
		resp.Hint = h.Hint()
	}
	WriteJSON(w, status, resp)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteBadRequest writes a 400 Bad Request error response.
func WriteBadRequest(w http.ResponseWriter, errCode, message string) {
	WriteError(w, http.StatusBadRequest, errCode, message)
}
