// Package api provides the REST handlers for presets, pedal presets,
// recorded sessions and settings.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/nritya/internal/music"
	"github.com/ayusman/nritya/internal/store"
)

// timeFormat is used for every timestamp in responses.
const timeFormat = "2006-01-02T15:04:05Z07:00"

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeStoreError maps store sentinels to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, what+" already exists")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to access "+strings.ToLower(what))
	}
}

// writeConfigError reports a rejected mapping configuration, naming the
// offending field when known.
func writeConfigError(w http.ResponseWriter, err error) {
	var ce *music.ConfigurationError
	if errors.As(err, &ce) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ce.Reason, Field: ce.Field})
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// splitPath strips prefix and returns the remaining path segments.
func splitPath(path, prefix string) []string {
	path = strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
