package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ayusman/nritya/internal/detector"
	"github.com/ayusman/nritya/internal/fixtures"
	"github.com/ayusman/nritya/internal/gesture"
	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/music"
	"github.com/ayusman/nritya/internal/sink"
)

func newSession(t *testing.T, mode Mode) *Session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Mode = mode
	s, err := NewSession(cfg)
	require.NoError(t, err)
	return s
}

func frame(p *detector.Pose, at time.Time) detector.Frame {
	return detector.Frame{Pose: p, Timestamp: at}
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("karaoke")
	assert.Error(t, err)

	assert.Equal(t, Harp, Melody.Next())
	assert.Equal(t, Melody, Ambient.Next())
}

func TestNewSession_Validates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "karaoke"
	_, err := NewSession(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Mapping.GlobalScale = nil
	m := cfg.Mapping.Mappings[detector.RightWrist]
	m.Scale = nil
	cfg.Mapping.Mappings[detector.RightWrist] = m
	_, err = NewSession(cfg)
	var ce *music.ConfigurationError
	assert.ErrorAs(t, err, &ce)

	cfg = DefaultConfig()
	cfg.Pedals = harp.Pedals{"H": harp.Sharp}
	_, err = NewSession(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Mapping = nil
	_, err = NewSession(cfg)
	assert.Error(t, err)
}

func TestSession_Melody(t *testing.T) {
	s := newSession(t, Melody)
	t0 := fixtures.Start

	res, err := s.Tick(frame(detector.StandingPose(), t0))
	require.NoError(t, err)
	assert.Empty(t, res.Notes)
	assert.Equal(t, t0, res.At)
	assert.Greater(t, res.Tempo, 0)

	res, err = s.Tick(frame(detector.ArmsRaisedPose(), t0.Add(300*time.Millisecond)))
	require.NoError(t, err)
	require.Len(t, res.Notes, 2)
	assert.Equal(t, "G4", res.Notes[0].Pitch)
	assert.Equal(t, "A6", res.Notes[1].Pitch)
	assert.Empty(t, res.Plucks)
	assert.Empty(t, res.Chords)

	// idle
	res, err = s.Tick(frame(detector.ArmsRaisedPose(), t0.Add(600*time.Millisecond)))
	require.NoError(t, err)
	assert.Empty(t, res.Notes)
	assert.Equal(t, 3, s.Ticks())
}

func TestSession_MelodyGestures(t *testing.T) {
	s := newSession(t, Melody)
	var res Result
	var err error
	for i, p := range fixtures.Clap(5) {
		res, err = s.Tick(frame(p, fixtures.Start.Add(time.Duration(i)*33*time.Millisecond)))
		require.NoError(t, err)
	}
	var found bool
	for _, g := range res.Gestures {
		found = found || g.Type == gesture.Clap
	}
	assert.True(t, found, "gestures %v", res.Gestures)
}

func TestSession_StopClearsState(t *testing.T) {
	s := newSession(t, Melody)
	t0 := fixtures.Start
	_, err := s.Tick(frame(detector.StandingPose(), t0))
	require.NoError(t, err)
	require.Equal(t, 2, s.tracker.Len())

	s.Stop()
	assert.Zero(t, s.tracker.Len())
	assert.Zero(t, s.gestures.History().Len())
	assert.Zero(t, s.Ticks())

	// first sighting after stop only seeds again
	res, err := s.Tick(frame(detector.ArmsRaisedPose(), t0.Add(time.Second)))
	require.NoError(t, err)
	assert.Empty(t, res.Notes)
}

func TestSession_SetMapping(t *testing.T) {
	s := newSession(t, Melody)
	_, err := s.Tick(frame(detector.StandingPose(), fixtures.Start))
	require.NoError(t, err)

	drummer, err := music.Preset("drummer")
	require.NoError(t, err)
	require.NoError(t, s.SetMapping(drummer))
	assert.Equal(t, "Drummer", s.Mapping().Name)
	assert.Zero(t, s.tracker.Len())

	assert.Error(t, s.SetMapping(nil))
}

func TestSession_HarpWrists(t *testing.T) {
	s := newSession(t, Harp)
	l := s.Layout()
	sp := l.Spacing()
	t0 := fixtures.Start

	p := fixtures.With(detector.StandingPose(), detector.RightWrist, l.StringX(5)+sp/4, 0.6)
	res, err := s.Tick(frame(p, t0))
	require.NoError(t, err)
	assert.Empty(t, res.Plucks)

	p = fixtures.With(detector.StandingPose(), detector.RightWrist, l.StringX(9)+sp/4, 0.6)
	res, err = s.Tick(frame(p, t0.Add(100*time.Millisecond)))
	require.NoError(t, err)
	require.Len(t, res.Plucks, 4)
	for i, pl := range res.Plucks {
		assert.Equal(t, 6+i, pl.String)
		assert.Equal(t, "rightWrist", pl.Point)
		assert.True(t, pl.Glissando)
	}
	assert.Equal(t, "B1", res.Plucks[0].Note)
	assert.Empty(t, res.Notes)
	assert.Equal(t, 2, s.strings.Points())

	// points that leave the frame are forgotten
	_, err = s.Tick(detector.Frame{Timestamp: t0.Add(200 * time.Millisecond)})
	require.NoError(t, err)
	assert.Zero(t, s.strings.Points())
}

func TestSession_HarpPedals(t *testing.T) {
	s := newSession(t, Harp)
	l := s.Layout()
	g, _ := harp.Preset("G Major")
	require.NoError(t, s.SetPedals(g))
	assert.Equal(t, harp.Sharp, s.Pedals()["F"])
	assert.Error(t, s.SetPedals(harp.Pedals{"C": "loud"}))

	x3 := l.StringX(3)
	p := fixtures.With(detector.StandingPose(), detector.RightWrist, x3-0.2*l.Spacing(), 0.6)
	_, err := s.Tick(frame(p, fixtures.Start))
	require.NoError(t, err)
	p = fixtures.With(detector.StandingPose(), detector.RightWrist, x3+0.2*l.Spacing(), 0.6)
	res, err := s.Tick(frame(p, fixtures.Start.Add(100*time.Millisecond)))
	require.NoError(t, err)
	require.Len(t, res.Plucks, 1)
	assert.Equal(t, "F#1", res.Plucks[0].Note)
}

func TestHarpPoints(t *testing.T) {
	f := detector.Frame{
		Pose:  detector.StandingPose(),
		Hands: []detector.HandLandmarks{fixtures.Hand("Right", 0.4), fixtures.Hand("Left", 0.7)},
	}
	points := HarpPoints(f, 0.3)
	assert.Len(t, points, 10)
	assert.InDelta(t, 0.4, points["right_index"], 1e-9)
	assert.InDelta(t, 0.7, points["left_index"], 1e-9)
	_, ok := points["leftWrist"]
	assert.False(t, ok)

	f.Hands = nil
	points = HarpPoints(f, 0.3)
	assert.Equal(t, map[string]float64{"leftWrist": 0.65, "rightWrist": 0.35}, points)

	f.Pose = fixtures.Occluded(f.Pose, detector.LeftWrist)
	points = HarpPoints(f, 0.3)
	assert.Len(t, points, 1)
}

func TestSession_Ambient(t *testing.T) {
	s := newSession(t, Ambient)
	t0 := fixtures.Start
	poses := []*detector.Pose{detector.StandingPose(), detector.ArmsRaisedPose(), detector.StandingPose()}

	var results []Result
	for i, p := range poses {
		res, err := s.Tick(frame(p, t0.Add(time.Duration(i)*300*time.Millisecond)))
		require.NoError(t, err)
		results = append(results, res)
		for _, n := range res.Notes {
			assert.Equal(t, "rightWrist", n.Source, "left side drives chords only")
		}
	}

	assert.False(t, results[1].ChordChanged)
	assert.NotEmpty(t, results[1].Notes)

	last := results[2]
	require.True(t, last.ChordChanged)
	assert.Equal(t, 1, last.ChordIndex)
	require.Len(t, last.Chords, 2)
	assert.Equal(t, music.Pad, last.Chords[0].Instrument)
	assert.Equal(t, PadVelocity, last.Chords[0].Velocity)
	assert.Equal(t, 1, s.ChordIndex())

	s.Stop()
	assert.Zero(t, s.ChordIndex())
}

func TestResult_Events(t *testing.T) {
	at := fixtures.Start
	r := Result{
		At:       at,
		Notes:    []music.NoteEvent{{Pitch: "C4"}},
		Chords:   []music.ChordEvent{{Name: "Cmaj7"}},
		Plucks:   []harp.Pluck{{Note: "D4"}},
		Gestures: []gesture.Gesture{{Type: gesture.Hold}},
	}
	assert.False(t, r.Empty())
	assert.True(t, Result{}.Empty())

	events := r.Events()
	require.Len(t, events, 4)
	kinds := []sink.Kind{events[0].Kind, events[1].Kind, events[2].Kind, events[3].Kind}
	assert.Equal(t, []sink.Kind{sink.KindChord, sink.KindNote, sink.KindPluck, sink.KindGesture}, kinds)
	for _, e := range events {
		assert.Equal(t, at, e.At)
	}
}

func TestEmitter_IsolatesFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var delivered []string
	s := sink.Func(func(_ context.Context, e sink.Event) error {
		switch {
		case e.Kind == sink.KindNote && e.Note.Pitch == "bad":
			return errors.New("malformed note")
		case e.Kind == sink.KindNote && e.Note.Pitch == "panic":
			panic("synth exploded")
		case e.Kind == sink.KindNote:
			delivered = append(delivered, e.Note.Pitch)
		}
		return nil
	})
	em := NewEmitter(s, zap.New(core))

	n := em.Emit(context.Background(), Result{
		At:    fixtures.Start,
		Notes: []music.NoteEvent{{Pitch: "C4"}, {Pitch: "bad"}, {Pitch: "panic"}, {Pitch: "E4"}},
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"C4", "E4"}, delivered)
	assert.EqualValues(t, 2, em.Failures())
	assert.EqualValues(t, 2, em.Emitted())
	assert.Equal(t, 2, logs.Len())
}
