// Package app runs the local performance pipeline: camera frames go through
// the pose detector and an engine session, and the results go to the sinks.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/capture"
	"github.com/ayusman/nritya/internal/detector"
	"github.com/ayusman/nritya/internal/engine"
	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/music"
	"github.com/ayusman/nritya/internal/sink"
	"github.com/ayusman/nritya/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while nothing moves in front of the camera.
	IdleFPS = 5
	// ActiveFPS is the frame rate while performing.
	ActiveFPS = 15
	// IdleTimeout is how long the scene must stay still before going idle.
	IdleTimeout = 2 * time.Second
	// DefaultMotionThreshold is the percentage of changed pixels that wakes
	// the pipeline.
	DefaultMotionThreshold = 1.0
)

// SettingMode is the settings key holding the last selected mode.
const SettingMode = "mode"

// ErrNoPreview is returned by Preview.ReadFrame before the first frame.
var ErrNoPreview = errors.New("no preview frame yet")

// Publisher receives every processed frame, e.g. the landmarks hub.
type Publisher interface {
	Publish(f detector.Frame, res engine.Result)
}

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Engine   engine.Config
	// Sink receives every event, typically the synthesizer and the log.
	Sink      sink.Sink
	Landmarks Publisher
	// Store, when set, records each run as a session and keeps the mode
	// setting.
	Store           *store.Store
	MotionThreshold float64
	// Tempo is called when the body-derived tempo changes.
	Tempo  func(bpm int)
	Logger *zap.Logger
}

// App orchestrates capture, detection and the engine session.
type App struct {
	config  Config
	log     *zap.Logger
	camera  capture.Camera
	motion  *capture.MotionGate
	preview *Preview

	mu        sync.RWMutex
	detector  detector.Detector
	session   *engine.Session
	emitter   *engine.Emitter
	recorder  *sink.Recorder
	sessionID string
	enabled   bool
	stopCh    chan struct{}
	done      chan struct{}

	noteMu   sync.Mutex
	lastNote string
	noteFns  []func(string)
	tempo    int
}

// New creates an App. The camera is not opened until Start.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("app: no camera configured")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.MotionThreshold <= 0 {
		config.MotionThreshold = DefaultMotionThreshold
	}
	if config.Engine.Logger == nil {
		config.Engine.Logger = config.Logger
	}

	session, err := engine.NewSession(config.Engine)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:   config,
		log:      config.Logger,
		camera:   config.Camera,
		motion:   capture.NewMotionGate(config.MotionThreshold),
		preview:  newPreview(),
		detector: config.Detector,
		session:  session,
	}
	if a.detector == nil {
		a.log.Warn("no pose detector configured, using mock detector")
		a.detector = detector.NewMockDetector()
	}
	a.emitter = a.newEmitter()
	return a, nil
}

func (a *App) newEmitter() *engine.Emitter {
	sinks := sink.Multi{sink.Func(a.observe), a.config.Sink}
	if a.recorder != nil {
		sinks = append(sinks, a.recorder)
	}
	return engine.NewEmitter(sinks, a.log)
}

// SetEnabled pauses or resumes frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether frames are being processed.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Mode returns the mode of the current session.
func (a *App) Mode() engine.Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.Mode()
}

// SetMode replaces the session with one in mode, keeping the mapping and
// pedals.
func (a *App) SetMode(mode engine.Mode) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg := a.config.Engine
	cfg.Mode = mode
	cfg.Mapping = a.session.Mapping()
	cfg.Pedals = a.session.Pedals()
	session, err := engine.NewSession(cfg)
	if err != nil {
		return err
	}
	a.session.Stop()
	a.session = session
	a.config.Engine.Mode = mode

	if st := a.config.Store; st != nil {
		if err := st.Settings().Set(SettingMode, string(mode)); err != nil {
			a.log.Error("save mode setting", zap.Error(err))
		}
	}
	a.log.Info("mode changed", zap.String("mode", string(mode)))
	return nil
}

// CycleMode switches to the next mode and returns it.
func (a *App) CycleMode() (engine.Mode, error) {
	next := a.Mode().Next()
	return next, a.SetMode(next)
}

// SetMapping switches the music mapping of the running session.
func (a *App) SetMapping(m *music.MappingConfig) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.SetMapping(m)
}

// SetPedals changes the harp pedals of the running session.
func (a *App) SetPedals(p harp.Pedals) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.SetPedals(p)
}

// OnNote registers fn to be called with the pitch of every played note or
// pluck.
func (a *App) OnNote(fn func(pitch string)) {
	a.noteMu.Lock()
	defer a.noteMu.Unlock()
	a.noteFns = append(a.noteFns, fn)
}

// LastNote returns the most recently played pitch.
func (a *App) LastNote() string {
	a.noteMu.Lock()
	defer a.noteMu.Unlock()
	return a.lastNote
}

func (a *App) observe(_ context.Context, e sink.Event) error {
	var pitch string
	switch e.Kind {
	case sink.KindNote:
		pitch = e.Note.Pitch
	case sink.KindPluck:
		pitch = e.Pluck.Note
	default:
		return nil
	}

	a.noteMu.Lock()
	a.lastNote = pitch
	fns := append(([]func(string))(nil), a.noteFns...)
	a.noteMu.Unlock()

	for _, fn := range fns {
		fn(pitch)
	}
	return nil
}

func (a *App) updateTempo(bpm int) {
	if bpm <= 0 || a.config.Tempo == nil {
		return
	}
	a.noteMu.Lock()
	changed := bpm != a.tempo
	a.tempo = bpm
	a.noteMu.Unlock()
	if changed {
		a.config.Tempo(bpm)
	}
}

// Preview returns the annotated preview frames, for the MJPEG stream.
func (a *App) Preview() *Preview {
	return a.preview
}

// Start opens the camera, starts recording a session when a store is
// configured and runs the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.camera.SetFPS(IdleFPS)

	if st := a.config.Store; st != nil {
		now := time.Now()
		rec := &store.Session{
			ID:        uuid.NewString(),
			Mode:      string(a.session.Mode()),
			StartedAt: now,
		}
		if m := a.session.Mapping(); m != nil {
			rec.Preset = m.Name
		}
		if err := st.Sessions().Create(rec); err != nil {
			a.log.Error("record session", zap.Error(err))
		} else {
			a.sessionID = rec.ID
			a.recorder = sink.NewRecorder(st.Sessions(), rec.ID, now)
		}
	}
	a.emitter = a.newEmitter()

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	a.log.Info("pipeline started", zap.String("mode", string(a.session.Mode())))
	return nil
}

// Stop halts the pipeline, closes the camera, clears the session state and
// finishes the recorded session.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.camera.Close(); err != nil {
		a.log.Warn("close camera", zap.Error(err))
	}
	a.motion.Reset()
	a.session.Stop()

	if a.recorder != nil {
		notes := a.recorder.NoteCount()
		if err := a.recorder.Flush(); err != nil {
			a.log.Error("flush session events", zap.Error(err))
		}
		if err := a.config.Store.Sessions().Finish(a.sessionID, time.Now(), notes); err != nil {
			a.log.Error("finish session", zap.Error(err))
		}
		a.recorder = nil
		a.sessionID = ""
	}
	a.emitter = a.newEmitter()

	a.log.Info("pipeline stopped")
}

// Close stops the pipeline and releases the detector.
func (a *App) Close() error {
	a.Stop()
	a.motion.Close()
	a.preview.Close()

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.detector != nil {
		return a.detector.Close()
	}
	return nil
}

// SessionID returns the id of the session being recorded, if any.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

// Preview holds the latest annotated camera frame.
type Preview struct {
	mu  sync.Mutex
	mat gocv.Mat
	ok  bool
}

func newPreview() *Preview {
	return &Preview{mat: gocv.NewMat()}
}

func (p *Preview) set(frame *gocv.Mat, draw func(*gocv.Mat)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	frame.CopyTo(&p.mat)
	draw(&p.mat)
	p.ok = true
}

// ReadFrame returns a copy of the latest frame. The caller closes it.
func (p *Preview) ReadFrame() (*gocv.Mat, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ok {
		return nil, ErrNoPreview
	}
	m := p.mat.Clone()
	return &m, nil
}

// Close releases the stored frame.
func (p *Preview) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mat.Close()
	p.mat = gocv.NewMat()
	p.ok = false
}
