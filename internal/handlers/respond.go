package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pickem/internal/repository"
	"pickem/internal/service"
	"pickem/internal/utils"
)

// writeJSON encodes a response body with the given status code
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error string `json:"error"`
}

// writeError maps service errors to HTTP status codes. Unrecognized
// errors are logged and reported as an internal error without leaking
// detail.
func writeError(w http.ResponseWriter, err error) {
	var validationErr utils.ValidationError

	switch {
	case errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrPlayerNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrNotGameHost),
		errors.Is(err, service.ErrNotCardOwner),
		errors.Is(err, service.ErrNotApproved):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrGameEnded):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, repository.ErrVersionConflict):
		// Callers that want the current state on conflict handle this
		// before reaching writeError.
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		log.Printf("Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// decodeJSON parses a request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
