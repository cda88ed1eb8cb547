package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/capture"
	"github.com/ayusman/nritya/internal/detector"
	"github.com/ayusman/nritya/internal/engine"
	"github.com/ayusman/nritya/internal/fixtures"
	"github.com/ayusman/nritya/internal/sink"
	"github.com/ayusman/nritya/internal/store"
)

type recorded struct {
	mu      sync.Mutex
	events  []sink.Event
	frames  int
	tempos  []int
	pitches []string
}

func (r *recorded) Emit(_ context.Context, e sink.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorded) Publish(detector.Frame, engine.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
}

func newTestApp(t *testing.T, cam capture.Camera, det detector.Detector, st *store.Store) (*App, *recorded) {
	t.Helper()
	rec := &recorded{}
	a, err := New(Config{
		Camera:    cam,
		Detector:  det,
		Engine:    engine.DefaultConfig(),
		Sink:      rec,
		Landmarks: rec,
		Store:     st,
		Tempo: func(bpm int) {
			rec.mu.Lock()
			rec.tempos = append(rec.tempos, bpm)
			rec.mu.Unlock()
		},
	})
	require.NoError(t, err)
	a.OnNote(func(p string) {
		rec.mu.Lock()
		rec.pitches = append(rec.pitches, p)
		rec.mu.Unlock()
	})
	t.Cleanup(func() { a.Close() })
	return a, rec
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_RequiresCamera(t *testing.T) {
	_, err := New(Config{Engine: engine.DefaultConfig()})
	assert.Error(t, err)

	cfg := engine.DefaultConfig()
	cfg.Mode = "karaoke"
	_, err = New(Config{Camera: capture.NewMockCamera(nil, false), Engine: cfg})
	assert.Error(t, err)
}

func TestApp_Process(t *testing.T) {
	det := detector.NewMockDetector()
	a, rec := newTestApp(t, capture.NewMockCamera(nil, false), det, nil)

	_, err := a.Preview().ReadFrame()
	assert.ErrorIs(t, err, ErrNoPreview)

	frame := fixtures.BlankFrame(160, 120)
	defer frame.Close()
	ctx := context.Background()
	t0 := fixtures.Start

	det.SetPose(detector.StandingPose())
	res, err := a.process(ctx, &frame, t0)
	require.NoError(t, err)
	assert.Empty(t, res.Notes)

	det.SetPose(detector.ArmsRaisedPose())
	res, err = a.process(ctx, &frame, t0.Add(300*time.Millisecond))
	require.NoError(t, err)
	require.Len(t, res.Notes, 2)

	assert.Equal(t, "A6", a.LastNote())
	rec.mu.Lock()
	assert.Equal(t, []string{"G4", "A6"}, rec.pitches)
	assert.Len(t, rec.events, 2)
	assert.Equal(t, 2, rec.frames)
	assert.NotEmpty(t, rec.tempos)
	rec.mu.Unlock()
	assert.Equal(t, 2, det.Calls())

	p, err := a.Preview().ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, 160, p.Cols())
	p.Close()
}

func TestApp_ProcessDetectError(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetError(errors.New("estimator crashed"))
	a, rec := newTestApp(t, capture.NewMockCamera(nil, false), det, nil)

	frame := fixtures.BlankFrame(160, 120)
	defer frame.Close()

	_, err := a.process(context.Background(), &frame, fixtures.Start)
	assert.ErrorContains(t, err, "estimator crashed")
	assert.Zero(t, rec.frames)
}

func TestApp_Modes(t *testing.T) {
	st := newTestStore(t)
	a, _ := newTestApp(t, capture.NewMockCamera(nil, false), detector.NewMockDetector(), st)
	assert.Equal(t, engine.Melody, a.Mode())

	mode, err := a.CycleMode()
	require.NoError(t, err)
	assert.Equal(t, engine.Harp, mode)
	assert.Equal(t, engine.Harp, a.Mode())

	saved, err := st.Settings().Get(SettingMode)
	require.NoError(t, err)
	assert.Equal(t, "harp", saved)

	assert.Error(t, a.SetMode("karaoke"))
	assert.Equal(t, engine.Harp, a.Mode())

	assert.Error(t, a.SetMapping(nil))
}

func TestApp_DisabledReadsNothing(t *testing.T) {
	frame := fixtures.BlankFrame(64, 48)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	a, _ := newTestApp(t, cam, detector.NewMockDetector(), nil)

	require.NoError(t, a.Start())
	time.Sleep(300 * time.Millisecond)
	a.Stop()

	assert.Zero(t, cam.Reads())
	assert.False(t, cam.IsOpen())
}

func TestApp_PipelineRecordsSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline test")
	}

	black := fixtures.BlankFrame(160, 120)
	defer black.Close()
	white := fixtures.BlankFrame(160, 120)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	st := newTestStore(t)
	cam := capture.NewMockCamera([]*gocv.Mat{&black, &white}, true)
	det := detector.NewMockDetector()
	det.SetPose(detector.StandingPose())
	a, rec := newTestApp(t, cam, det, st)

	a.SetEnabled(true)
	require.NoError(t, a.Start())
	id := a.SessionID()
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool { return det.Calls() > 0 }, 3*time.Second, 10*time.Millisecond)
	a.Stop()

	assert.Empty(t, a.SessionID())
	rec.mu.Lock()
	assert.Positive(t, rec.frames)
	rec.mu.Unlock()

	sess, err := st.Sessions().Get(id)
	require.NoError(t, err)
	assert.Equal(t, "melody", sess.Mode)
	assert.Equal(t, "Intuitive", sess.Preset)
	assert.NotNil(t, sess.StoppedAt)

	f, err := a.Preview().ReadFrame()
	require.NoError(t, err)
	f.Close()
}
