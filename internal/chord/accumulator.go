package chord

import (
	"errors"
	"math"
	"time"

	"github.com/ayusman/nritya/internal/detector"
)

// Config tunes an Accumulator.
type Config struct {
	// Threshold is the accumulated movement that must be exceeded.
	Threshold float64
	// Cooldown is the minimum time between two chord changes.
	Cooldown time.Duration
	// Parts contribute movement. Empty means every left-side part.
	Parts []detector.BodyPart
	// ConfidenceThreshold filters keypoints in Observe.
	ConfidenceThreshold float64
	Progression         []Entry
}

// DefaultConfig returns the ambient-mode tuning.
func DefaultConfig() Config {
	return Config{
		Threshold:           1.0,
		Cooldown:            2 * time.Second,
		ConfidenceThreshold: 0.3,
		Progression:         Ambient,
	}
}

// Accumulator owns the chord state of one performance.
type Accumulator struct {
	cfg        Config
	parts      map[detector.BodyPart]bool
	sum        float64
	index      int
	lastChange time.Time
	prev       map[detector.BodyPart]detector.Keypoint
}

// New creates an accumulator positioned on the first chord.
func New(cfg Config) (*Accumulator, error) {
	if len(cfg.Progression) == 0 {
		return nil, errors.New("chord: empty progression")
	}
	if cfg.Threshold <= 0 || math.IsNaN(cfg.Threshold) {
		return nil, errors.New("chord: threshold must be positive")
	}
	if cfg.Cooldown < 0 {
		return nil, errors.New("chord: negative cooldown")
	}

	parts := make(map[detector.BodyPart]bool)
	if len(cfg.Parts) == 0 {
		for _, p := range detector.AllBodyParts() {
			if p.Side() == detector.Left {
				parts[p] = true
			}
		}
	} else {
		for _, p := range cfg.Parts {
			parts[p] = true
		}
	}

	return &Accumulator{
		cfg:   cfg,
		parts: parts,
		prev:  make(map[detector.BodyPart]detector.Keypoint),
	}, nil
}

// Accumulate adds a movement delta. When the running sum exceeds the
// threshold and the cooldown has elapsed, the index advances by one, wrapping,
// and the sum resets. Negative or non-finite deltas are ignored.
func (a *Accumulator) Accumulate(delta float64, now time.Time) (bool, int) {
	if delta <= 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return false, a.index
	}
	a.sum += delta
	if a.sum <= a.cfg.Threshold {
		return false, a.index
	}
	if !a.lastChange.IsZero() && now.Sub(a.lastChange) < a.cfg.Cooldown {
		return false, a.index
	}
	a.index = (a.index + 1) % len(a.cfg.Progression)
	a.sum = 0
	a.lastChange = now
	return true, a.index
}

// Observe adds the movement of the designated parts since their previous
// confident sighting.
func (a *Accumulator) Observe(pose *detector.Pose, now time.Time) (bool, int) {
	parts := make([]detector.BodyPart, 0, len(a.parts))
	for p := range a.parts {
		parts = append(parts, p)
	}

	var delta float64
	for part, kp := range detector.Resolve(pose, parts) {
		if !kp.Valid(a.cfg.ConfidenceThreshold) {
			continue
		}
		if prev, ok := a.prev[part]; ok {
			delta += kp.Distance(prev)
		}
		a.prev[part] = kp
	}
	return a.Accumulate(delta, now)
}

// Designated reports whether part contributes movement.
func (a *Accumulator) Designated(part detector.BodyPart) bool {
	return a.parts[part]
}

// Index returns the current chord index.
func (a *Accumulator) Index() int {
	return a.index
}

// Current returns the current chord.
func (a *Accumulator) Current() Entry {
	return a.cfg.Progression[a.index]
}

// Sum returns the movement accumulated since the last change.
func (a *Accumulator) Sum() float64 {
	return a.sum
}

// Reset returns to the first chord and forgets all movement.
func (a *Accumulator) Reset() {
	a.sum = 0
	a.index = 0
	a.lastChange = time.Time{}
	clear(a.prev)
}
