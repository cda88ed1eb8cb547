package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayusman/nritya/internal/music"
	"github.com/ayusman/nritya/internal/store"
)

// PresetHandler handles HTTP requests for mapping presets.
type PresetHandler struct {
	store *store.Store
}

// NewPresetHandler creates a new PresetHandler with the given store.
func NewPresetHandler(s *store.Store) *PresetHandler {
	return &PresetHandler{store: s}
}

// ServeHTTP routes /api/presets and /api/presets/{id}.
func (h *PresetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/presets")

	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

type presetRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Config      *music.MappingConfig `json:"config"`
}

type presetResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Builtin     bool                 `json:"builtin"`
	Config      *music.MappingConfig `json:"config"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
}

type listPresetsResponse struct {
	Presets []presetResponse `json:"presets"`
}

func toPresetResponse(p *store.Preset) presetResponse {
	return presetResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Builtin:     p.Builtin,
		Config:      p.Config,
		CreatedAt:   p.CreatedAt.Format(timeFormat),
		UpdatedAt:   p.UpdatedAt.Format(timeFormat),
	}
}

// list handles GET /api/presets.
func (h *PresetHandler) list(w http.ResponseWriter, r *http.Request) {
	presets, err := h.store.Presets().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list presets")
		return
	}

	response := listPresetsResponse{Presets: make([]presetResponse, 0, len(presets))}
	for _, p := range presets {
		response.Presets = append(response.Presets, toPresetResponse(p))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/presets/{id}. The id may also be a preset name.
func (h *PresetHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Presets().GetByID(id)
	if err != nil {
		p, err = h.store.Presets().GetByName(id)
	}
	if err != nil {
		writeStoreError(w, err, "Preset")
		return
	}
	writeJSON(w, http.StatusOK, toPresetResponse(p))
}

// create handles POST /api/presets.
func (h *PresetHandler) create(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Config == nil {
		writeError(w, http.StatusBadRequest, "Config is required")
		return
	}
	if req.Config.Name == "" {
		req.Config.Name = req.Name
	}
	if err := req.Config.Validate(); err != nil {
		writeConfigError(w, err)
		return
	}

	p := &store.Preset{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
	}
	if err := h.store.Presets().Create(p); err != nil {
		writeStoreError(w, err, "Preset")
		return
	}
	writeJSON(w, http.StatusCreated, toPresetResponse(p))
}

// update handles PUT /api/presets/{id}. Empty fields keep their value.
func (h *PresetHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Presets().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Preset")
		return
	}

	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Config != nil {
		if err := req.Config.Validate(); err != nil {
			writeConfigError(w, err)
			return
		}
		p.Config = req.Config
	}

	if err := h.store.Presets().Update(p); err != nil {
		writeStoreError(w, err, "Preset")
		return
	}
	writeJSON(w, http.StatusOK, toPresetResponse(p))
}

// delete handles DELETE /api/presets/{id}. Built-in presets cannot be
// deleted.
func (h *PresetHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Presets().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Preset")
		return
	}
	if p.Builtin {
		writeError(w, http.StatusForbidden, "Built-in presets cannot be deleted")
		return
	}
	if err := h.store.Presets().Delete(id); err != nil {
		writeStoreError(w, err, "Preset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
