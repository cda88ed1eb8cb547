package music

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/nritya/internal/detector"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func pentatonicMapping() BodyPartMapping {
	return BodyPartMapping{
		BodyPart:     detector.RightWrist,
		Enabled:      true,
		Instrument:   Piano,
		Role:         RoleMelody,
		XAxis:        AxisMapping{Parameter: ParamNone, Range: [2]float64{0, 1}},
		YAxis:        AxisMapping{Parameter: ParamPitch, Range: [2]float64{0, 1}, Invert: true},
		VelocityAxis: AxisMapping{Parameter: ParamNone, Range: [2]float64{0, 1}},
		Scale:        []string{"C", "D", "E", "G", "A"},
		OctaveRange:  [2]int{3, 5},
	}
}

func kp(x, y float64) detector.Keypoint {
	return detector.Keypoint{Name: "right_wrist", X: x, Y: y, Score: 0.9}
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		in   string
		want string
		midi int
	}{
		{"C4", "C4", 60},
		{"C#4", "C#4", 61},
		{"A4", "A4", 69},
		{"Eb3", "Eb3", 51},
		{"g2", "G2", 43},
		{"Bb", "Bb", 70},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := ParseNote(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.String())
			assert.Equal(t, tt.midi, n.MIDI())
		})
	}

	for _, bad := range []string{"", "H2", "C#x", "C99", "#4"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseNote(bad)
			assert.ErrorIs(t, err, ErrInvalidNote)
		})
	}
}

func TestBodyPartMapping_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BodyPartMapping)
		field  string
	}{
		{"empty scale", func(m *BodyPartMapping) { m.Scale = nil }, "rightWrist.scale"},
		{"bad degree", func(m *BodyPartMapping) { m.Scale = []string{"C", "X"} }, "rightWrist.scale[1]"},
		{"octave order", func(m *BodyPartMapping) { m.OctaveRange = [2]int{5, 3} }, "rightWrist.octaveRange"},
		{"degenerate pitch range", func(m *BodyPartMapping) { m.YAxis.Range = [2]float64{0.5, 0.5} }, "rightWrist.yAxis.range"},
		{"NaN range", func(m *BodyPartMapping) { m.XAxis.Range = [2]float64{math.NaN(), 1} }, "rightWrist.xAxis.range"},
		{"unknown parameter", func(m *BodyPartMapping) { m.VelocityAxis.Parameter = "reverb" }, "rightWrist.velocityAxis.parameter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := pentatonicMapping()
			tt.mutate(&m)

			err := m.Validate()
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	assert.NoError(t, pentatonicMapping().Validate())
}

func TestPresets_Valid(t *testing.T) {
	for _, id := range PresetIDs() {
		t.Run(id, func(t *testing.T) {
			cfg, err := Preset(id)
			require.NoError(t, err)
			assert.NoError(t, cfg.Validate())
			assert.NotEmpty(t, cfg.EnabledParts())
		})
	}

	_, err := Preset("nope")
	assert.Error(t, err)
}

func TestPresets_AreCopies(t *testing.T) {
	a, _ := Preset("intuitive")
	a.Mappings[detector.RightWrist] = BodyPartMapping{}
	b, _ := Preset("intuitive")
	assert.True(t, b.Mappings[detector.RightWrist].Enabled)
}

func TestMapper_PentatonicScenario(t *testing.T) {
	m := NewMapper(DefaultOptions())
	mapping := pentatonicMapping()
	seed := &PartState{PreviousX: 0.5, PreviousY: 0.5, LastSeen: t0}

	ev, _, err := m.Map(kp(0.5, 0.0), seed, mapping, t0.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "A5", ev.Pitch)

	ev, _, err = m.Map(kp(0.5, 1.0), seed, mapping, t0.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "C3", ev.Pitch)
}

func TestMapper_PitchAlwaysInScale(t *testing.T) {
	m := NewMapper(DefaultOptions())
	mapping := pentatonicMapping()
	allowed := map[string]bool{}
	for _, n := range mapping.Scale {
		allowed[n] = true
	}

	for y := 0.0; y <= 1.0; y += 0.05 {
		seed := &PartState{PreviousX: 0.9, PreviousY: 0.5}
		ev, _, err := m.Map(kp(0.1, y), seed, mapping, t0)
		require.NoError(t, err)
		require.NotNil(t, ev)

		n, err := ParseNote(ev.Pitch)
		require.NoError(t, err)
		assert.True(t, allowed[n.PitchClass()], ev.Pitch)
		assert.GreaterOrEqual(t, n.Octave, 3)
		assert.LessOrEqual(t, n.Octave, 5)
	}
}

func TestMapper_FirstObservationSeeds(t *testing.T) {
	m := NewMapper(DefaultOptions())

	ev, state, err := m.Map(kp(0.4, 0.6), nil, pentatonicMapping(), t0)
	require.NoError(t, err)
	assert.Nil(t, ev)
	require.NotNil(t, state)
	assert.Equal(t, 0.4, state.PreviousX)
	assert.Equal(t, 0.6, state.PreviousY)
	assert.True(t, state.LastTrigger.IsZero())
}

func TestMapper_LowConfidenceKeepsState(t *testing.T) {
	m := NewMapper(DefaultOptions())
	prev := &PartState{PreviousX: 0.1, PreviousY: 0.1, LastSeen: t0}

	cases := map[string]detector.Keypoint{
		"low score": {X: 0.9, Y: 0.9, Score: 0.2},
		"NaN x":     {X: math.NaN(), Y: 0.9, Score: 0.9},
		"NaN y":     {X: 0.9, Y: math.NaN(), Score: 0.9},
	}
	for name, k := range cases {
		t.Run(name, func(t *testing.T) {
			ev, state, err := m.Map(k, prev, pentatonicMapping(), t0.Add(time.Second))
			require.NoError(t, err)
			assert.Nil(t, ev)
			assert.Same(t, prev, state)
		})
	}

	t.Run("never seeds", func(t *testing.T) {
		_, state, err := m.Map(detector.Keypoint{X: 0.5, Y: 0.5, Score: 0.1}, nil, pentatonicMapping(), t0)
		require.NoError(t, err)
		assert.Nil(t, state)
	})
}

func TestMapper_IdleSuppression(t *testing.T) {
	m := NewMapper(DefaultOptions())
	mapping := pentatonicMapping()

	var state *PartState
	events := 0
	for i := 0; i < 50; i++ {
		ev, next, err := m.Map(kp(0.3, 0.3), state, mapping, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		state = next
		if ev != nil {
			events++
		}
	}
	assert.Zero(t, events)
}

func TestMapper_RateLimit(t *testing.T) {
	mapping := pentatonicMapping()

	run := func(gap time.Duration) int {
		m := NewMapper(DefaultOptions())
		_, state, err := m.Map(kp(0.5, 0.5), nil, mapping, t0)
		require.NoError(t, err)

		count := 0
		first := t0.Add(time.Second)
		for i, y := range []float64{0.2, 0.8} {
			ev, next, err := m.Map(kp(0.5, y), state, mapping, first.Add(time.Duration(i)*gap))
			require.NoError(t, err)
			state = next
			if ev != nil {
				count++
			}
		}
		return count
	}

	assert.Equal(t, 1, run(10*time.Millisecond))
	assert.Equal(t, 2, run(300*time.Millisecond))
}

func TestMapper_LastTriggerMonotonic(t *testing.T) {
	m := NewMapper(DefaultOptions())
	mapping := pentatonicMapping()
	prev := &PartState{PreviousX: 0.5, PreviousY: 0.5, LastTrigger: t0, LastSeen: t0}

	ev, state, err := m.Map(kp(0.5, 0.1), prev, mapping, t0.Add(-time.Second))
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, t0, state.LastTrigger)
	assert.Equal(t, t0, state.LastSeen)
}

func TestMapper_Velocity(t *testing.T) {
	m := NewMapper(DefaultOptions())
	seed := &PartState{PreviousX: 0.5, PreviousY: 0.5}

	t.Run("from distance", func(t *testing.T) {
		ev, _, err := m.Map(kp(0.5, 0.6), seed, pentatonicMapping(), t0)
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.InDelta(t, 0.3, ev.Velocity, 1e-9)

		ev, _, err = m.Map(kp(0.5, 0.9), seed, pentatonicMapping(), t0)
		require.NoError(t, err)
		assert.InDelta(t, 0.7, ev.Velocity, 1e-9)
	})

	t.Run("speed mapped to volume", func(t *testing.T) {
		cfg, _ := Preset("intuitive")
		ev, _, err := m.Map(kp(0.5, 0.6), seed, cfg.Mappings[detector.RightWrist], t0)
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.InDelta(t, 0.1+0.3*0.7, ev.Velocity, 1e-9)
	})

	t.Run("axis mapped to volume", func(t *testing.T) {
		cfg, _ := Preset("experimental")
		ev, _, err := m.Map(kp(0.5, 0.25), seed, cfg.Mappings[detector.RightWrist], t0)
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.InDelta(t, 0.7, ev.Velocity, 1e-9)
		assert.Equal(t, "F5", ev.Pitch)
		assert.Contains(t, ev.Controls, ParamTimbre)
	})
}

func TestMapper_Controls(t *testing.T) {
	m := NewMapper(DefaultOptions())
	cfg, _ := Preset("intuitive")
	seed := &PartState{PreviousX: 0.5, PreviousY: 0.8}

	ev, _, err := m.Map(kp(0.5, 0.4), seed, cfg.Mappings[detector.LeftWrist], t0)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.InDelta(t, 1100, ev.Controls[ParamFilter], 1e-9)
	assert.Equal(t, "4n", ev.Duration)
	assert.Equal(t, Synth, ev.Instrument)
}

func TestMapper_NoPitchAxis(t *testing.T) {
	m := NewMapper(DefaultOptions())
	mapping := pentatonicMapping()
	mapping.YAxis.Parameter = ParamNone
	seed := &PartState{PreviousX: 0.5, PreviousY: 0.5}

	ev, state, err := m.Map(kp(0.5, 0.1), seed, mapping, t0)
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, 0.1, state.PreviousY)
}

func TestMapper_ConfigurationError(t *testing.T) {
	m := NewMapper(DefaultOptions())
	mapping := pentatonicMapping()
	mapping.Scale = nil
	prev := &PartState{PreviousX: 0.5, PreviousY: 0.5}

	ev, state, err := m.Map(kp(0.5, 0.1), prev, mapping, t0)
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Nil(t, ev)
	assert.Same(t, prev, state)
}

func TestRole_Duration(t *testing.T) {
	assert.Equal(t, "8n", RoleMelody.Duration())
	assert.Equal(t, "4n", RoleHarmony.Duration())
	assert.Equal(t, "16n", RoleRhythm.Duration())
	assert.Equal(t, "4n", RoleBass.Duration())
	assert.Equal(t, "2n", RoleEffects.Duration())
}

func TestTracker_Observe(t *testing.T) {
	cfg, err := Preset("intuitive")
	require.NoError(t, err)
	tr := NewTracker(NewMapper(DefaultOptions()))

	events, err := tr.Observe(detector.StandingPose(), cfg, t0)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 2, tr.Len())

	events, err = tr.Observe(detector.ArmsRaisedPose(), cfg, t0.Add(500*time.Millisecond))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "G4", events[0].Pitch)
	assert.Equal(t, "leftWrist", events[0].Source)
	assert.Equal(t, "A6", events[1].Pitch)
	assert.Equal(t, "rightWrist", events[1].Source)

	st, ok := tr.State(detector.RightWrist)
	require.True(t, ok)
	assert.Equal(t, 0.05, st.PreviousY)
	assert.Greater(t, st.SmoothedVelocity, 0.0)

	tr.Reset()
	assert.Zero(t, tr.Len())
	_, ok = tr.State(detector.RightWrist)
	assert.False(t, ok)
}

func TestTempo(t *testing.T) {
	mid := &detector.Pose{Keypoints: []detector.Keypoint{
		{Name: "nose", Y: 0.5, Score: 0.9},
		{Name: "left_wrist", Y: 0.5, Score: 0.9},
		{Name: "right_wrist", Y: 0.0, Score: 0.1},
	}}
	bpm, ok := Tempo(mid, 0.3)
	require.True(t, ok)
	assert.Equal(t, 120, bpm)

	_, ok = Tempo(&detector.Pose{}, 0.3)
	assert.False(t, ok)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		sym  string
		want time.Duration
	}{
		{"4n", 500 * time.Millisecond},
		{"8n", 250 * time.Millisecond},
		{"16n", 125 * time.Millisecond},
		{"2n", time.Second},
		{"1m", 2 * time.Second},
		{"4n.", 750 * time.Millisecond},
		{"4t", 333333333 * time.Nanosecond},
	}
	for _, tt := range tests {
		t.Run(tt.sym, func(t *testing.T) {
			got, err := ParseDuration(tt.sym, 120)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "x", "0n", "qm"} {
		_, err := ParseDuration(bad, 120)
		assert.Error(t, err, bad)
	}
}
