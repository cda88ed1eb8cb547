package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/nritya/internal/store"
)

// SettingsHandler reads and writes application settings such as the last
// used preset, mode and pedal setting.
type SettingsHandler struct {
	store *store.Store
}

// NewSettingsHandler creates a new SettingsHandler with the given store.
func NewSettingsHandler(s *store.Store) *SettingsHandler {
	return &SettingsHandler{store: s}
}

// ServeHTTP handles GET and PUT /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		all, err := h.store.Settings().All()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read settings")
			return
		}
		writeJSON(w, http.StatusOK, all)
	case http.MethodPut:
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		for k, v := range req {
			if k == "" {
				writeError(w, http.StatusBadRequest, "Empty setting key")
				return
			}
			if err := h.store.Settings().Set(k, v); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to save settings")
				return
			}
		}
		all, err := h.store.Settings().All()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read settings")
			return
		}
		writeJSON(w, http.StatusOK, all)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
