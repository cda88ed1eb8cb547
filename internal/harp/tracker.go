package harp

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// MinSpacing is the shortest gap between two notes of one point.
	MinSpacing = 25 * time.Millisecond
	// MaxBacklog is the delay after the tick within which a run of plucks is
	// squeezed. A run that does not fit at MinSpacing runs past it.
	MaxBacklog = 500 * time.Millisecond
	// FastSweep is the speed, in layout widths per second, treated as the
	// fastest glissando.
	FastSweep = 2.0
)

// Pluck is one string sounding.
type Pluck struct {
	Point     string        `json:"point"`
	String    int           `json:"string"`
	Note      string        `json:"note"`
	Velocity  float64       `json:"velocity"`
	At        time.Duration `json:"at"`
	Glissando bool          `json:"glissando"`
}

// Velocity returns the pluck velocity for a normalized speed in [0,1].
// Discrete plucks are always louder than glissando notes, and glissando notes
// get softer as the sweep gets faster.
func Velocity(speedNorm float64, glissando bool) float64 {
	if !glissando {
		return 0.6
	}
	return math.Max(0.25, 0.45-0.3*clamp01(speedNorm))
}

// NoteSpacing returns the gap between consecutive notes of one point. It
// decreases with speed and never drops below MinSpacing.
func NoteSpacing(speedNorm float64, glissando bool) time.Duration {
	s := clamp01(speedNorm)
	var d time.Duration
	if glissando {
		d = 60*time.Millisecond - time.Duration(s*float64(35*time.Millisecond))
	} else {
		d = 100*time.Millisecond - time.Duration(s*float64(40*time.Millisecond))
	}
	if d < MinSpacing {
		d = MinSpacing
	}
	return d
}

type pointState struct {
	x           float64
	seen        time.Time
	lastCrossed int
	nextFree    time.Time
}

// Tracker detects string crossings for any number of tracked points
// (fingertips or wrists) keyed by a stable id such as "right_index".
type Tracker struct {
	mu     sync.Mutex
	layout Layout
	pedals Pedals
	points map[string]*pointState
	log    *zap.Logger
}

// NewTracker creates a tracker over layout using pedals.
func NewTracker(layout Layout, pedals Pedals, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		layout: layout,
		pedals: pedals.Clone(),
		points: make(map[string]*pointState),
		log:    log,
	}
}

// Layout returns the string layout.
func (t *Tracker) Layout() Layout {
	return t.layout
}

// Pedals returns a copy of the current pedal setting.
func (t *Tracker) Pedals() Pedals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pedals.Clone()
}

// SetPedals changes the pedal setting for subsequent plucks.
func (t *Tracker) SetPedals(p Pedals) {
	t.mu.Lock()
	t.pedals = p.Clone()
	t.mu.Unlock()
}

// Update records the new x of point id and returns the strings it plucked.
// The first sighting of a point only seeds its state. Non-finite x is ignored.
func (t *Tracker) Update(id string, x float64, now time.Time) []Pluck {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.points[id]
	if !ok {
		t.points[id] = &pointState{x: x, seen: now, lastCrossed: -1}
		return nil
	}

	crossed, last := t.layout.Update(x, st.x, st.lastCrossed)

	speedNorm := 0.0
	if dt := now.Sub(st.seen).Seconds(); dt > 0 && t.layout.Width > 0 {
		speedNorm = clamp01(math.Abs(x-st.x) / t.layout.Width / dt / FastSweep)
	}
	st.x = x
	if now.After(st.seen) {
		st.seen = now
	}
	st.lastCrossed = last

	if len(crossed) == 0 {
		return nil
	}

	glissando := len(crossed) > 1
	spacing := NoteSpacing(speedNorm, glissando)
	velocity := Velocity(speedNorm, glissando)

	start := now
	if st.nextFree.After(start) {
		start = st.nextFree
	}

	if n := len(crossed); n > 1 {
		budget := (MaxBacklog - start.Sub(now)) / time.Duration(n-1)
		if budget < spacing {
			t.log.Debug("glissando squeezed", zap.String("point", id), zap.Int("strings", n), zap.Duration("spacing", budget))
			spacing = max(budget, MinSpacing)
		}
	}

	plucks := make([]Pluck, 0, len(crossed))
	for _, i := range crossed {
		note, err := t.layout.Note(i, t.pedals)
		if err != nil {
			continue
		}
		plucks = append(plucks, Pluck{
			Point:     id,
			String:    i,
			Note:      note,
			Velocity:  velocity,
			At:        start.Sub(now),
			Glissando: glissando,
		})
		start = start.Add(spacing)
	}
	st.nextFree = start
	return plucks
}

// Forget drops the state of one point, e.g. when its hand leaves the frame.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	delete(t.points, id)
	t.mu.Unlock()
}

// Points returns the number of tracked points.
func (t *Tracker) Points() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.points)
}

// Reset forgets every point.
func (t *Tracker) Reset() {
	t.mu.Lock()
	clear(t.points)
	t.mu.Unlock()
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
