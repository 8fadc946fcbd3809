package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteError writes err with the status matching its ofx.Kind. Errors
// outside the taxonomy are internal errors.
func WriteError(w http.ResponseWriter, err error) {
	var oe *ofx.Error
	if !errors.As(err, &oe) {
		WriteErrorMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, StatusForKind(oe.Kind), ErrorResponse{Error: err.Error(), Kind: oe.Kind.String()})
}

// StatusForKind maps an error kind to an HTTP status code
func StatusForKind(kind ofx.Kind) int {
	switch kind {
	case ofx.NotFound:
		return http.StatusNotFound
	case ofx.BadValue, ofx.Malformed, ofx.BadIndex, ofx.TypeMismatch, ofx.UnknownProperty:
		return http.StatusBadRequest
	case ofx.AlreadyLoaded:
		return http.StatusConflict
	case ofx.LoadFailed, ofx.Failed, ofx.MissingHostFeature:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteInternalError writes an internal server error response (500 Internal Server Error)
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteErrorMessage(w, http.StatusInternalServerError, err.Error())
}
