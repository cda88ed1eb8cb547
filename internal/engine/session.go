// Package engine runs one performance: each tick it feeds a keypoint frame
// through the melody mapper, the harp string tracker, the chord accumulator
// and the gesture recognizer, depending on the mode.
package engine

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/nritya/internal/chord"
	"github.com/ayusman/nritya/internal/detector"
	"github.com/ayusman/nritya/internal/gesture"
	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/music"
)

// Mode selects what a session plays.
type Mode string

const (
	// Melody maps body parts to notes through a MappingConfig.
	Melody Mode = "melody"
	// Harp plucks virtual strings with fingertips, or wrists when no hands
	// are tracked.
	Harp Mode = "harp"
	// Ambient advances a pad chord progression with left-side movement and
	// plays melody with the remaining parts.
	Ambient Mode = "ambient"
)

// Modes lists every mode.
var Modes = []Mode{Melody, Harp, Ambient}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !slices.Contains(Modes, m) {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// Next returns the mode after m, wrapping.
func (m Mode) Next() Mode {
	i := slices.Index(Modes, m)
	return Modes[(i+1)%len(Modes)]
}

// Chord velocities in ambient mode.
const (
	PadVelocity  = 0.4
	BassVelocity = 0.6
)

// Config configures a Session.
type Config struct {
	Mode    Mode
	Mapping *music.MappingConfig
	Pedals  harp.Pedals
	Layout  harp.Layout
	Mapper  music.Options
	Chord   chord.Config
	Gesture gesture.Config
	// GestureParts are evaluated by the gesture recognizer each tick.
	GestureParts []detector.BodyPart
	Logger       *zap.Logger
}

// DefaultConfig returns a melody session on the intuitive preset.
func DefaultConfig() Config {
	mapping, _ := music.Preset("intuitive")
	pedals, _ := harp.Preset(harp.DefaultPreset)
	return Config{
		Mode:         Melody,
		Mapping:      mapping,
		Pedals:       pedals,
		Layout:       harp.NewLayout(1, false),
		Mapper:       music.DefaultOptions(),
		Chord:        chord.DefaultConfig(),
		Gesture:      gesture.DefaultConfig(),
		GestureParts: []detector.BodyPart{detector.LeftWrist, detector.RightWrist},
	}
}

// Result is everything one tick produced.
type Result struct {
	At       time.Time
	Notes    []music.NoteEvent
	Chords   []music.ChordEvent
	Plucks   []harp.Pluck
	Gestures []gesture.Gesture
	// ChordIndex is the current position in the progression (ambient mode).
	ChordIndex   int
	ChordChanged bool
	// Tempo is derived from body height; zero when no keypoint was confident.
	Tempo int
}

// Empty reports whether the tick produced nothing to emit.
func (r Result) Empty() bool {
	return len(r.Notes) == 0 && len(r.Chords) == 0 && len(r.Plucks) == 0 && len(r.Gestures) == 0
}

// Session owns all per-performance state. Tick must not be called
// concurrently; the setters may be called from other goroutines.
type Session struct {
	mu       sync.Mutex
	cfg      Config
	log      *zap.Logger
	tracker  *music.Tracker
	strings  *harp.Tracker
	chords   *chord.Accumulator
	gestures *gesture.Recognizer
	melody   *music.MappingConfig
	points   map[string]bool
	ticks    int
}

// NewSession validates cfg and creates an idle session.
func NewSession(cfg Config) (*Session, error) {
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.Mapping == nil {
		return nil, fmt.Errorf("engine: no mapping configured")
	}
	mapping := cfg.Mapping.Clone()
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	cfg.Mapping = mapping

	if cfg.Pedals == nil {
		cfg.Pedals, _ = harp.Preset(harp.DefaultPreset)
	}
	if err := cfg.Pedals.Validate(); err != nil {
		return nil, err
	}
	if cfg.Layout.Len() == 0 {
		cfg.Layout = harp.NewLayout(1, false)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg.Mapper.Logger = log

	chords, err := chord.New(cfg.Chord)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		log:      log,
		tracker:  music.NewTracker(music.NewMapper(cfg.Mapper)),
		strings:  harp.NewTracker(cfg.Layout, cfg.Pedals, log),
		chords:   chords,
		gestures: gesture.NewRecognizer(cfg.Gesture),
		points:   make(map[string]bool),
	}
	s.melody = s.melodyMapping(mapping)
	return s, nil
}

// melodyMapping returns the mapping the melody tracker plays. In ambient
// mode the parts driving the chord progression are left out.
func (s *Session) melodyMapping(m *music.MappingConfig) *music.MappingConfig {
	if s.cfg.Mode != Ambient {
		return m
	}
	out := m.Clone()
	for part, pm := range out.Mappings {
		if s.chords.Designated(part) {
			pm.Enabled = false
			out.Mappings[part] = pm
		}
	}
	return out
}

// Mode returns the session mode.
func (s *Session) Mode() Mode {
	return s.cfg.Mode
}

// Mapping returns a copy of the active mapping.
func (s *Session) Mapping() *music.MappingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Mapping.Clone()
}

// SetMapping switches to a new mapping. Per-part state is discarded, as
// after a preset switch.
func (s *Session) SetMapping(m *music.MappingConfig) error {
	if m == nil {
		return fmt.Errorf("engine: no mapping configured")
	}
	m = m.Clone()
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Mapping = m
	s.melody = s.melodyMapping(m)
	s.tracker.Reset()
	s.log.Info("mapping switched", zap.String("name", m.Name))
	return nil
}

// Pedals returns the harp pedal setting.
func (s *Session) Pedals() harp.Pedals {
	return s.strings.Pedals()
}

// SetPedals changes the harp pedal setting.
func (s *Session) SetPedals(p harp.Pedals) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.strings.SetPedals(p)
	return nil
}

// Layout returns the harp string layout.
func (s *Session) Layout() harp.Layout {
	return s.cfg.Layout
}

// ChordIndex returns the current chord progression position.
func (s *Session) ChordIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chords.Index()
}

// Ticks returns the number of frames processed since the last Stop.
func (s *Session) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Tick processes one frame. The frame timestamp is the tick time; a zero
// timestamp means now. A configuration error aborts the tick.
func (s *Session) Tick(f detector.Frame) (Result, error) {
	now := f.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++

	res := Result{At: now}

	switch s.cfg.Mode {
	case Melody:
		notes, err := s.tracker.Observe(f.Pose, s.melody, now)
		if err != nil {
			return res, err
		}
		res.Notes = notes

	case Harp:
		res.Plucks = s.pluck(f, now)

	case Ambient:
		changed, idx := s.chords.Observe(f.Pose, now)
		res.ChordIndex, res.ChordChanged = idx, changed
		if changed {
			entry := s.chords.Current()
			res.Chords = []music.ChordEvent{entry.PadEvent(PadVelocity), entry.BassEvent(BassVelocity)}
			s.log.Debug("chord changed", zap.String("chord", entry.Name), zap.Int("index", idx))
		}
		notes, err := s.tracker.Observe(f.Pose, s.melody, now)
		if err != nil {
			return res, err
		}
		res.Notes = notes
	}

	if f.Pose != nil {
		res.Gestures = s.gestures.Detect(f.Pose, now, s.cfg.GestureParts)
		if bpm, ok := music.Tempo(f.Pose, s.cfg.Mapper.ConfidenceThreshold); ok {
			res.Tempo = bpm
		}
	}
	return res, nil
}

// pluck updates every tracked point and forgets the points that left the
// frame.
func (s *Session) pluck(f detector.Frame, now time.Time) []harp.Pluck {
	points := HarpPoints(f, s.cfg.Mapper.ConfidenceThreshold)
	ids := make([]string, 0, len(points))
	for id := range points {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var plucks []harp.Pluck
	for _, id := range ids {
		plucks = append(plucks, s.strings.Update(id, points[id]*s.cfg.Layout.Width, now)...)
	}
	for id := range s.points {
		if _, ok := points[id]; !ok {
			s.strings.Forget(id)
			delete(s.points, id)
		}
	}
	for _, id := range ids {
		s.points[id] = true
	}
	return plucks
}

// HarpPoints returns the normalized x of every point that plays the harp:
// each fingertip keyed "hand_finger" when hands are tracked, otherwise the
// confident wrists keyed by body part.
func HarpPoints(f detector.Frame, threshold float64) map[string]float64 {
	points := make(map[string]float64)
	for i := range f.Hands {
		for _, tip := range f.Hands[i].Fingertips() {
			points[tip.Key()] = tip.X
		}
	}
	if len(points) > 0 {
		return points
	}
	wrists := []detector.BodyPart{detector.LeftWrist, detector.RightWrist}
	for part, kp := range detector.Resolve(f.Pose, wrists) {
		if kp.Valid(threshold) {
			points[string(part)] = kp.X
		}
	}
	return points
}

// Stop ends the performance: every per-part, per-point, chord and gesture
// state is discarded so a later tick starts fresh.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.Reset()
	s.strings.Reset()
	s.chords.Reset()
	s.gestures.Reset()
	clear(s.points)
	s.ticks = 0
	s.log.Info("session stopped", zap.String("mode", string(s.cfg.Mode)))
}
