package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, NoCamera, cfg.CameraID)
	assert.Equal(t, 0.3, cfg.Tuning.ConfidenceThreshold)
	assert.Equal(t, 2*time.Second, cfg.Tuning.ChordCooldown)
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nritya.yaml")
	content := `
addr: ":9090"
mode: harp
tuning:
  movement_threshold: 0.03
  chord_cooldown: 1500ms
  min_interval:
    melody: 120ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "harp", cfg.Mode)
	assert.Equal(t, 0.03, cfg.Tuning.MovementThreshold)
	assert.Equal(t, 1500*time.Millisecond, cfg.Tuning.ChordCooldown)
	assert.Equal(t, 120*time.Millisecond, cfg.Tuning.MinInterval["melody"])
	// untouched fields keep their defaults
	assert.Equal(t, 0.3, cfg.Tuning.ConfidenceThreshold)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NRITYA_ADDR", ":7000")
	t.Setenv("NRITYA_CAMERA", "1")
	t.Setenv("NRITYA_CONSTRAINED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, 1, cfg.CameraID)
	assert.True(t, cfg.Tuning.Constrained)
	assert.Equal(t, 0.45, cfg.Tuning.ConfidenceThreshold)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad camera env", func(t *testing.T) {
		t.Setenv("NRITYA_CAMERA", "front")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("invalid tuning", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tuning:\n  movement_threshold: -1\n"), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "movement_threshold")
	})
}
