package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/nritya/internal/detector"
	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/music"
	"github.com/ayusman/nritya/internal/store"
)

// newTestStore creates a seeded Store with a temporary database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed())
	return s
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestPresetHandler_List(t *testing.T) {
	h := NewPresetHandler(newTestStore(t))

	rec := do(t, h, http.MethodGet, "/api/presets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decode[listPresetsResponse](t, rec)
	require.Len(t, resp.Presets, 3)
	for _, p := range resp.Presets {
		assert.True(t, p.Builtin)
		assert.NotEmpty(t, p.Config.Mappings)
	}
}

func TestPresetHandler_GetByIDOrName(t *testing.T) {
	h := NewPresetHandler(newTestStore(t))

	rec := do(t, h, http.MethodGet, "/api/presets/drummer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Drummer", decode[presetResponse](t, rec).Name)

	rec = do(t, h, http.MethodGet, "/api/presets/Experimental", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "experimental", decode[presetResponse](t, rec).ID)

	rec = do(t, h, http.MethodGet, "/api/presets/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresetHandler_CreateUpdateDelete(t *testing.T) {
	h := NewPresetHandler(newTestStore(t))
	cfg, err := music.Preset("experimental")
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/api/presets", presetRequest{Name: "Mine", Config: cfg})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[presetResponse](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Builtin)

	rec = do(t, h, http.MethodPost, "/api/presets", presetRequest{Name: "Mine", Config: cfg})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/presets/"+created.ID, presetRequest{Description: "edited"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[presetResponse](t, rec)
	assert.Equal(t, "edited", updated.Description)
	assert.Equal(t, "Mine", updated.Name)

	rec = do(t, h, http.MethodDelete, "/api/presets/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/presets/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresetHandler_RejectsBadConfig(t *testing.T) {
	h := NewPresetHandler(newTestStore(t))
	cfg, _ := music.Preset("intuitive")
	m := cfg.Mappings[detector.RightWrist]
	m.OctaveRange = [2]int{5, 3}
	cfg.Mappings[detector.RightWrist] = m

	rec := do(t, h, http.MethodPost, "/api/presets", presetRequest{Name: "Broken", Config: cfg})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "rightWrist.octaveRange", resp.Field)

	tests := []struct {
		name string
		body any
	}{
		{"invalid json", "{"},
		{"missing name", presetRequest{Config: cfg}},
		{"missing config", presetRequest{Name: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/presets", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPresetHandler_BuiltinsAreProtected(t *testing.T) {
	h := NewPresetHandler(newTestStore(t))
	rec := do(t, h, http.MethodDelete, "/api/presets/intuitive", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/presets/intuitive", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPedalHandler(t *testing.T) {
	h := NewPedalHandler(newTestStore(t))

	rec := do(t, h, http.MethodGet, "/api/pedals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listPedalsResponse](t, rec)
	require.Len(t, list.Pedals, len(harp.PresetNames))
	assert.Equal(t, harp.DefaultPreset, list.Pedals[0].Name)
	assert.Len(t, list.Pedals[0].Notes, harp.NumStrings)

	d, _ := harp.Preset("D Major")
	rec = do(t, h, http.MethodPost, "/api/pedals", pedalRequest{Name: "mine", Positions: d})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/pedals/mine", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[pedalResponse](t, rec)
	assert.Equal(t, harp.Sharp, got.Positions["C"])
	assert.Equal(t, "C#1", got.Notes[0])

	rec = do(t, h, http.MethodPost, "/api/pedals", `{"name":"bad","positions":{"C":"loud"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/pedals/C%20Major", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/pedals/mine", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSessionHandler(t *testing.T) {
	s := newTestStore(t)
	h := NewSessionHandler(s)

	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Sessions().Create(&store.Session{ID: "s1", Mode: "harp", Preset: "C Major", StartedAt: start}))
	require.NoError(t, s.Sessions().AppendEvents("s1", []store.SessionEvent{
		{Seq: 0, Kind: "pluck", Payload: json.RawMessage(`{"note":"C4"}`), AtMs: 5},
	}))
	require.NoError(t, s.Sessions().Finish("s1", start.Add(time.Minute), 1))

	rec := do(t, h, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listSessionsResponse](t, rec)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, "harp", list.Sessions[0].Mode)
	assert.NotEmpty(t, list.Sessions[0].StoppedAt)

	rec = do(t, h, http.MethodGet, "/api/sessions/s1/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[listEventsResponse](t, rec)
	require.Len(t, events.Events, 1)
	assert.JSONEq(t, `{"note":"C4"}`, string(events.Events[0].Payload))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/sessions/nope/events", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/sessions?limit=x", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPost, "/api/sessions", nil).Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/sessions/s1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/sessions/s1", nil).Code)
}

func TestSettingsHandler(t *testing.T) {
	h := NewSettingsHandler(newTestStore(t))

	rec := do(t, h, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string]string](t, rec))

	rec = do(t, h, http.MethodPut, "/api/settings", map[string]string{"mode": "harp", "pedals": "G Major"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"mode": "harp", "pedals": "G Major"}, decode[map[string]string](t, rec))

	rec = do(t, h, http.MethodPut, "/api/settings", map[string]string{"": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
