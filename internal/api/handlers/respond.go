// Package handlers implements the HTTP surface of the qualification
// service.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"brokerbot/internal/conversation"
	"brokerbot/internal/rules"
	"brokerbot/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeErrorResponse(w http.ResponseWriter, status int, message string, err error) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{
		Error: fmt.Sprintf("%s: %v", message, err),
	})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErrorResponse(w, http.StatusNotFound, message, err)
	case errors.Is(err, store.ErrConflict), errors.Is(err, conversation.ErrSessionTerminal):
		writeErrorResponse(w, http.StatusConflict, message, err)
	case errors.Is(err, conversation.ErrInvalidTransition):
		writeErrorResponse(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, rules.ErrSourceUnavailable):
		writeErrorResponse(w, http.StatusServiceUnavailable, message, err)
	default:
		writeErrorResponse(w, http.StatusInternalServerError, message, err)
	}
}
