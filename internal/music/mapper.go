package music

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/nritya/internal/detector"
)

// Options tunes the mapper.
type Options struct {
	// ConfidenceThreshold is the score a keypoint must exceed to count.
	ConfidenceThreshold float64
	// MovementThreshold is the minimum normalized displacement that plays.
	MovementThreshold float64
	// MinInterval is the per-role minimum time between two notes.
	MinInterval map[Role]time.Duration
	// DefaultInterval applies to roles missing from MinInterval.
	DefaultInterval time.Duration
	// Smoothing is the EMA factor for SmoothedVelocity, in (0,1].
	Smoothing float64
	Logger    *zap.Logger
}

// DefaultOptions returns desktop tuning.
func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: 0.3,
		MovementThreshold:   0.025,
		MinInterval: map[Role]time.Duration{
			RoleMelody:  150 * time.Millisecond,
			RoleHarmony: 250 * time.Millisecond,
			RoleRhythm:  100 * time.Millisecond,
			RoleBass:    250 * time.Millisecond,
			RoleEffects: 250 * time.Millisecond,
		},
		DefaultInterval: 150 * time.Millisecond,
		Smoothing:       0.5,
	}
}

// Interval returns the minimum time between notes for role.
func (o Options) Interval(r Role) time.Duration {
	if d, ok := o.MinInterval[r]; ok {
		return d
	}
	return o.DefaultInterval
}

// PartState is the per-body-part memory of the mapper. It is only ever
// replaced, never mutated in place.
type PartState struct {
	PreviousX        float64
	PreviousY        float64
	LastTrigger      time.Time
	LastSeen         time.Time
	SmoothedVelocity float64
}

// Mapper turns one keypoint observation into at most one note.
type Mapper struct {
	opts Options
	log  *zap.Logger
}

// NewMapper creates a mapper. Zero-valued options fall back to defaults.
func NewMapper(opts Options) *Mapper {
	def := DefaultOptions()
	if opts.MinInterval == nil {
		opts.MinInterval = def.MinInterval
	}
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = def.DefaultInterval
	}
	if opts.Smoothing <= 0 || opts.Smoothing > 1 {
		opts.Smoothing = def.Smoothing
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Mapper{opts: opts, log: log}
}

// Options returns the mapper tuning.
func (m *Mapper) Options() Options {
	return m.opts
}

// Map evaluates one observation of a body part. prev is nil before the
// first valid observation. It returns the note to play, if any, and the state
// to keep for the next call. A configuration error is returned before any
// state change.
func (m *Mapper) Map(kp detector.Keypoint, prev *PartState, mapping BodyPartMapping, now time.Time) (*NoteEvent, *PartState, error) {
	if err := mapping.Validate(); err != nil {
		return nil, prev, err
	}
	if !mapping.Enabled || !kp.Valid(m.opts.ConfidenceThreshold) {
		return nil, prev, nil
	}

	if prev == nil {
		return nil, &PartState{PreviousX: kp.X, PreviousY: kp.Y, LastSeen: now}, nil
	}

	distance := math.Hypot(kp.X-prev.PreviousX, kp.Y-prev.PreviousY)

	next := *prev
	next.PreviousX = kp.X
	next.PreviousY = kp.Y
	if now.After(prev.LastSeen) {
		dt := now.Sub(prev.LastSeen).Seconds()
		a := m.opts.Smoothing
		next.SmoothedVelocity = a*(distance/dt) + (1-a)*prev.SmoothedVelocity
		next.LastSeen = now
	}

	if distance < m.opts.MovementThreshold {
		return nil, &next, nil
	}
	if !prev.LastTrigger.IsZero() && now.Sub(prev.LastTrigger) < m.opts.Interval(mapping.Role) {
		return nil, &next, nil
	}

	pitch, ok := resolvePitch(kp, mapping)
	if !ok {
		return nil, &next, nil
	}

	ev := &NoteEvent{
		Pitch:      pitch,
		Duration:   mapping.Role.Duration(),
		Velocity:   resolveVelocity(kp, distance, mapping),
		Instrument: mapping.Instrument,
		Source:     string(mapping.BodyPart),
		Controls:   resolveControls(kp, distance, mapping),
	}
	next.LastTrigger = now

	m.log.Debug("note",
		zap.String("part", ev.Source),
		zap.String("pitch", ev.Pitch),
		zap.Float64("velocity", ev.Velocity),
		zap.Float64("distance", distance))
	return ev, &next, nil
}

// axisValue returns the normalized coordinate for the axis, inverted if set.
func axisValue(v float64, a AxisMapping) float64 {
	v = clamp01(v)
	if a.Invert {
		v = 1 - v
	}
	return v
}

func rescale(v float64, r [2]float64) float64 {
	return r[0] + v*(r[1]-r[0])
}

func resolvePitch(kp detector.Keypoint, m BodyPartMapping) (string, bool) {
	var v float64
	var a AxisMapping
	switch {
	case m.YAxis.Parameter == ParamPitch:
		v, a = axisValue(kp.Y, m.YAxis), m.YAxis
	case m.XAxis.Parameter == ParamPitch:
		v, a = axisValue(kp.X, m.XAxis), m.XAxis
	default:
		return "", false
	}

	n := len(m.Scale)
	degree := int(math.Floor(rescale(v, a.Range) * float64(n)))
	degree = clampInt(degree, 0, n-1)

	lo, hi := m.OctaveRange[0], m.OctaveRange[1]
	octave := clampInt(lo+int(math.Floor(v*float64(hi-lo+1))), lo, hi)

	note, err := ParseNote(m.Scale[degree])
	if err != nil {
		return "", false
	}
	if note.HasOctave {
		return note.String(), true
	}
	return note.WithOctave(octave).String(), true
}

func resolveVelocity(kp detector.Keypoint, distance float64, m BodyPartMapping) float64 {
	switch {
	case m.YAxis.Parameter == ParamVolume:
		return clamp01(rescale(axisValue(kp.Y, m.YAxis), m.YAxis.Range))
	case m.XAxis.Parameter == ParamVolume:
		return clamp01(rescale(axisValue(kp.X, m.XAxis), m.XAxis.Range))
	case m.VelocityAxis.Parameter == ParamVolume:
		speed := axisValue(distance*3, m.VelocityAxis)
		return clamp01(rescale(speed, m.VelocityAxis.Range))
	default:
		return math.Min(0.7, distance*3)
	}
}

func resolveControls(kp detector.Keypoint, distance float64, m BodyPartMapping) map[AxisParameter]float64 {
	var controls map[AxisParameter]float64
	set := func(a AxisMapping, v float64) {
		switch a.Parameter {
		case ParamTimbre, ParamFilter, ParamTempo:
			if controls == nil {
				controls = make(map[AxisParameter]float64, 3)
			}
			controls[a.Parameter] = rescale(axisValue(v, a), a.Range)
		}
	}
	set(m.XAxis, kp.X)
	set(m.YAxis, kp.Y)
	set(m.VelocityAxis, distance*3)
	return controls
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
