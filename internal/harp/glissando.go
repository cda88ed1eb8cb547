package harp

import (
	"fmt"
	"math"
	"time"

	"github.com/ayusman/nritya/internal/music"
)

// Direction of a glissando.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// GlissandoConfig describes a scripted sweep.
type GlissandoConfig struct {
	Duration  time.Duration `json:"duration"`
	Direction Direction     `json:"direction"`
	Velocity  float64       `json:"velocity"`
}

// Patterns are the named glissandos offered to the performer.
var Patterns = map[string]GlissandoConfig{
	"Full Ascending":  {Duration: 2 * time.Second, Direction: Up, Velocity: 0.45},
	"Full Descending": {Duration: 2 * time.Second, Direction: Down, Velocity: 0.45},
	"Quick Up":        {Duration: 500 * time.Millisecond, Direction: Up, Velocity: 0.3},
	"Quick Down":      {Duration: 500 * time.Millisecond, Direction: Down, Velocity: 0.3},
	"Gentle Sweep":    {Duration: 3 * time.Second, Direction: Up, Velocity: 0.45},
	"Cascade":         {Duration: 4 * time.Second, Direction: Down, Velocity: 0.4},
}

// Glissando schedules strings start..end (inclusive) over cfg.Duration.
func Glissando(pedals Pedals, cfg GlissandoConfig, start, end int) ([]music.NoteEvent, error) {
	if start < 0 || end >= NumStrings || start > end {
		return nil, fmt.Errorf("%w: range %d..%d", ErrInvalidString, start, end)
	}
	notes := ScaleNotes(pedals)[start : end+1]
	if cfg.Direction == Down {
		rev := make([]string, len(notes))
		for i, n := range notes {
			rev[len(notes)-1-i] = n
		}
		notes = rev
	}

	delay := cfg.Duration / time.Duration(len(notes))
	events := make([]music.NoteEvent, len(notes))
	for i, n := range notes {
		events[i] = music.NoteEvent{
			Pitch:      n,
			Duration:   "4n",
			Velocity:   cfg.Velocity,
			Instrument: music.Harp,
			Source:     "glissando",
			At:         time.Duration(i) * delay,
		}
	}
	return events, nil
}

// MovementToGlissando maps a hand speed in layout widths per second and a
// horizontal direction to a sweep. Faster movement gives a shorter, softer
// glissando.
func MovementToGlissando(speed float64, right bool) GlissandoConfig {
	n := clamp01(speed / FastSweep)
	dir := Down
	if right {
		dir = Up
	}
	return GlissandoConfig{
		Direction: dir,
		Duration:  time.Duration((0.5 + (1-n)*2.5) * float64(time.Second)),
		Velocity:  Velocity(n, true),
	}
}

// Point is a tracked 2D position.
type Point struct {
	X, Y float64
}

// GlissandoDetection is the result of DetectGlissando.
type GlissandoDetection struct {
	IsGlissando bool
	Right       bool
	Speed       float64
}

// DefaultGlissandoThreshold is the mean per-sample horizontal step, in
// normalized units, above which a movement counts as a glissando.
const DefaultGlissandoThreshold = 0.05

// DetectGlissando looks at the last five positions and reports a sweep when
// the mean horizontal step exceeds threshold.
func DetectGlissando(positions []Point, threshold float64) GlissandoDetection {
	if len(positions) < 2 {
		return GlissandoDetection{Right: true}
	}
	recent := positions
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	var total, travel float64
	for i := 1; i < len(recent); i++ {
		dx := recent[i].X - recent[i-1].X
		total += dx
		travel += math.Abs(dx)
	}
	avg := travel / float64(len(recent)-1)
	return GlissandoDetection{
		IsGlissando: avg > threshold,
		Right:       total > 0,
		Speed:       avg,
	}
}

// ChordKind selects the chord built on each degree.
type ChordKind string

const (
	Triad   ChordKind = "triad"
	Seventh ChordKind = "seventh"
)

// ChordProgression builds one chord per scale degree starting at middle C,
// stacking thirds from the pedalled string table.
func ChordProgression(pedals Pedals, kind ChordKind) [][]string {
	intervals := []int{0, 2, 4}
	if kind == Seventh {
		intervals = append(intervals, 6)
	}
	notes := ScaleNotes(pedals)
	const middleC = 21

	chords := make([][]string, 0, 7)
	for degree := 0; degree < 7; degree++ {
		chord := make([]string, 0, len(intervals))
		for _, iv := range intervals {
			chord = append(chord, notes[(middleC+degree+iv)%len(notes)])
		}
		chords = append(chords, chord)
	}
	return chords
}
