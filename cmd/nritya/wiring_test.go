package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/nritya/internal/config"
	"github.com/ayusman/nritya/internal/engine"
	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/music"
	"github.com/ayusman/nritya/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "nritya.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Seed())
	return st
}

func TestEngineConfig_Defaults(t *testing.T) {
	ec, err := engineConfig(config.Default(), nil)
	require.NoError(t, err)

	assert.Equal(t, engine.Melody, ec.Mode)
	assert.Equal(t, "Intuitive", ec.Mapping.Name)
	assert.Equal(t, 0.3, ec.Mapper.ConfidenceThreshold)
	assert.Equal(t, harp.NumStrings, ec.Layout.Len())
	assert.Equal(t, 2*time.Second, ec.Chord.Cooldown)
}

func TestEngineConfig_Constrained(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "harp"
	cfg.Tuning.Constrained = true
	cfg.Tuning.ConfidenceThreshold = 0.45
	cfg.Tuning.MinInterval = map[string]time.Duration{"melody": 300 * time.Millisecond}

	ec, err := engineConfig(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, engine.Harp, ec.Mode)
	assert.Equal(t, 0.45, ec.Mapper.ConfidenceThreshold)
	assert.Equal(t, 0.45, ec.Chord.ConfidenceThreshold)
	assert.Equal(t, 24, ec.Layout.Len())
	assert.Equal(t, 300*time.Millisecond, ec.Mapper.Interval(music.RoleMelody))
	assert.Equal(t, 100*time.Millisecond, ec.Mapper.Interval(music.RoleRhythm))
	assert.Equal(t, 150*time.Millisecond, music.DefaultOptions().Interval(music.RoleMelody), "defaults untouched")
}

func TestEngineConfig_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "karaoke"
	_, err := engineConfig(cfg, nil)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Preset = "polka"
	_, err = engineConfig(cfg, nil)
	assert.Error(t, err)
}

func TestResolvePreset(t *testing.T) {
	st := seededStore(t)

	m, err := resolvePreset(st, "Drummer")
	require.NoError(t, err)
	assert.Equal(t, "Drummer", m.Name)

	m, err = resolvePreset(st, "experimental")
	require.NoError(t, err)
	assert.Equal(t, "Experimental", m.Name)

	m, err = resolvePreset(nil, "intuitive")
	require.NoError(t, err)
	assert.Equal(t, "Intuitive", m.Name)

	_, err = resolvePreset(st, "polka")
	assert.Error(t, err)
}
