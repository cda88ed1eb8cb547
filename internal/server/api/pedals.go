package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/store"
)

// PedalHandler handles HTTP requests for harp pedal presets.
type PedalHandler struct {
	store *store.Store
}

// NewPedalHandler creates a new PedalHandler with the given store.
func NewPedalHandler(s *store.Store) *PedalHandler {
	return &PedalHandler{store: s}
}

// ServeHTTP routes /api/pedals and /api/pedals/{name}.
func (h *PedalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/pedals")

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
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, parts[0])
		case http.MethodDelete:
			h.delete(w, r, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

type pedalRequest struct {
	Name      string      `json:"name"`
	Positions harp.Pedals `json:"positions"`
}

// pedalResponse carries the sounding note of every string, lowest first.
type pedalResponse struct {
	Name      string      `json:"name"`
	Positions harp.Pedals `json:"positions"`
	Builtin   bool        `json:"builtin"`
	Notes     []string    `json:"notes"`
	CreatedAt string      `json:"created_at"`
}

type listPedalsResponse struct {
	Pedals []pedalResponse `json:"pedals"`
}

func toPedalResponse(p *store.PedalPreset) pedalResponse {
	return pedalResponse{
		Name:      p.Name,
		Positions: p.Positions,
		Builtin:   p.Builtin,
		Notes:     harp.ScaleNotes(p.Positions),
		CreatedAt: p.CreatedAt.Format(timeFormat),
	}
}

// list handles GET /api/pedals.
func (h *PedalHandler) list(w http.ResponseWriter, r *http.Request) {
	pedals, err := h.store.Pedals().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pedal presets")
		return
	}
	response := listPedalsResponse{Pedals: make([]pedalResponse, 0, len(pedals))}
	for _, p := range pedals {
		response.Pedals = append(response.Pedals, toPedalResponse(p))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/pedals/{name}.
func (h *PedalHandler) get(w http.ResponseWriter, r *http.Request, name string) {
	p, err := h.store.Pedals().Get(name)
	if err != nil {
		writeStoreError(w, err, "Pedal preset")
		return
	}
	writeJSON(w, http.StatusOK, toPedalResponse(p))
}

// create handles POST /api/pedals.
func (h *PedalHandler) create(w http.ResponseWriter, r *http.Request) {
	var req pedalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if err := req.Positions.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &store.PedalPreset{Name: req.Name, Positions: req.Positions}
	if err := h.store.Pedals().Create(p); err != nil {
		writeStoreError(w, err, "Pedal preset")
		return
	}
	writeJSON(w, http.StatusCreated, toPedalResponse(p))
}

// delete handles DELETE /api/pedals/{name}.
func (h *PedalHandler) delete(w http.ResponseWriter, r *http.Request, name string) {
	p, err := h.store.Pedals().Get(name)
	if err != nil {
		writeStoreError(w, err, "Pedal preset")
		return
	}
	if p.Builtin {
		writeError(w, http.StatusForbidden, "Built-in pedal presets cannot be deleted")
		return
	}
	if err := h.store.Pedals().Delete(name); err != nil {
		writeStoreError(w, err, "Pedal preset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
