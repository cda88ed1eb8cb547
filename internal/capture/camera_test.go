package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCamera_Defaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantFPS int
	}{
		{"zero options", Options{}, DefaultFPS},
		{"device 1", Options{DeviceID: 1}, DefaultFPS},
		{"explicit fps", Options{FPS: 30}, 30},
		{"negative fps", Options{FPS: -1}, DefaultFPS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.opts)
			assert.Equal(t, tt.wantFPS, cam.FPS())
			assert.False(t, cam.IsOpen())

			dc := cam.(*deviceCamera)
			assert.Equal(t, DefaultWidth, dc.opts.Width)
			assert.Equal(t, DefaultHeight, dc.opts.Height)
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(Options{})

	cam.SetFPS(10)
	assert.Equal(t, 10, cam.FPS())

	cam.SetFPS(0)
	assert.Equal(t, 10, cam.FPS(), "zero is ignored")

	cam.SetFPS(-5)
	assert.Equal(t, 10, cam.FPS(), "negative is ignored")
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(Options{})

	_, err := cam.ReadFrame()
	assert.ErrorIs(t, err, ErrCameraNotOpen)
	assert.NoError(t, cam.Close())
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(Options{})
	if err := cam.Open(); err != nil {
		t.Skipf("camera not available: %v", err)
	}
	require.True(t, cam.IsOpen())

	mat, err := cam.ReadFrame()
	if err == nil {
		assert.False(t, mat.Empty())
		mat.Close()
	} else {
		assert.ErrorIs(t, err, ErrNoFrame)
	}

	require.NoError(t, cam.Close())
	assert.False(t, cam.IsOpen())
}
