// Package gesture recognizes whole-body gestures over a short rolling history
// of pose frames.
package gesture

import (
	"math"
	"time"

	"github.com/ayusman/nritya/internal/detector"
)

// Type names a gesture.
type Type string

const (
	Swipe    Type = "swipe"
	Wave     Type = "wave"
	Hold     Type = "hold"
	Distance Type = "distance"
	Circle   Type = "circle"
	Clap     Type = "clap"
)

// Gesture is one detection.
type Gesture struct {
	Type       Type               `json:"type"`
	Part       detector.BodyPart  `json:"part,omitempty"`
	Confidence float64            `json:"confidence"`
	Params     map[string]float64 `json:"parameters"`
}

// Config tunes the detectors.
type Config struct {
	Capacity            int
	ConfidenceThreshold float64
	SwipeThreshold      float64
	WaveMinChanges      int
	HoldEpsilon         float64
	CircleTolerance     float64
	CircleMinExtent     float64
	ClapApart           float64
	ClapNear            float64
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Capacity:            DefaultCapacity,
		ConfidenceThreshold: 0.3,
		SwipeThreshold:      0.3,
		WaveMinChanges:      3,
		HoldEpsilon:         0.01,
		CircleTolerance:     0.15,
		CircleMinExtent:     0.1,
		ClapApart:           0.3,
		ClapNear:            0.1,
	}
}

const (
	minFrames    = 3
	swipeFrames  = 5
	waveFrames   = 8
	holdFrames   = 5
	circleFrames = 8
)

// Recognizer owns the pose history of one performance.
type Recognizer struct {
	cfg     Config
	history *History
	circles *PathMatcher
}

// NewRecognizer creates a recognizer with an empty history.
func NewRecognizer(cfg Config) *Recognizer {
	return &Recognizer{
		cfg:     cfg,
		history: NewHistory(cfg.Capacity),
		circles: NewPathMatcher(CircleTemplates(16, 8, cfg.CircleTolerance)...),
	}
}

// History returns the recognizer's frame history.
func (r *Recognizer) History() *History {
	return r.history
}

// Detect pushes the pose onto the history and evaluates every detector.
func (r *Recognizer) Detect(p *detector.Pose, at time.Time, parts []detector.BodyPart) []Gesture {
	r.history.Push(p, at)
	return r.Evaluate(parts)
}

// Evaluate runs the detectors over the current history without modifying it.
// The newest frame is the current one.
func (r *Recognizer) Evaluate(parts []detector.BodyPart) []Gesture {
	if r.history.Len() < minFrames {
		return nil
	}

	var out []Gesture
	for _, part := range parts {
		if g, ok := r.swipe(part); ok {
			out = append(out, g)
		}
	}
	for _, part := range parts {
		if g, ok := r.wave(part); ok {
			out = append(out, g)
		}
	}
	if g, ok := r.distance(parts); ok {
		out = append(out, g)
	}
	for _, part := range parts {
		if g, ok := r.hold(part); ok {
			out = append(out, g)
		}
	}
	for _, part := range parts {
		if g, ok := r.circle(part); ok {
			out = append(out, g)
		}
	}
	if g, ok := r.clap(parts); ok {
		out = append(out, g)
	}
	return out
}

// Reset empties the history.
func (r *Recognizer) Reset() {
	r.history.Reset()
}

func (r *Recognizer) swipe(part detector.BodyPart) (Gesture, bool) {
	if !part.IsWrist() || r.history.Len() < swipeFrames {
		return Gesture{}, false
	}
	track := r.history.Track(part, r.cfg.ConfidenceThreshold)
	if len(track) < swipeFrames {
		return Gesture{}, false
	}

	startX, endX := track[0].X, track[len(track)-1].X
	dist := math.Abs(endX - startX)
	if dist <= r.cfg.SwipeThreshold {
		return Gesture{}, false
	}
	dir := 1.0
	if endX < startX {
		dir = -1
	}
	return Gesture{
		Type:       Swipe,
		Part:       part,
		Confidence: math.Min(dist*2, 1),
		Params: map[string]float64{
			"direction": dir,
			"speed":     dist / float64(len(track)),
			"distance":  dist,
		},
	}, true
}

func (r *Recognizer) wave(part detector.BodyPart) (Gesture, bool) {
	if !part.IsArm() || r.history.Len() < waveFrames {
		return Gesture{}, false
	}
	track := r.history.Track(part, r.cfg.ConfidenceThreshold)
	if len(track) < waveFrames {
		return Gesture{}, false
	}

	changes := 0
	last := 0.0
	minX, maxX := track[0].X, track[0].X
	for i := 1; i < len(track); i++ {
		minX, maxX = min(minX, track[i].X), max(maxX, track[i].X)
		d := track[i].X - track[i-1].X
		if d == 0 {
			continue
		}
		if last != 0 && (d > 0) != (last > 0) {
			changes++
		}
		last = d
	}
	if changes < r.cfg.WaveMinChanges {
		return Gesture{}, false
	}
	return Gesture{
		Type:       Wave,
		Part:       part,
		Confidence: math.Min(float64(changes)/5, 1),
		Params: map[string]float64{
			"frequency": float64(changes) / float64(len(track)),
			"amplitude": maxX - minX,
			"changes":   float64(changes),
		},
	}, true
}

func (r *Recognizer) hold(part detector.BodyPart) (Gesture, bool) {
	if r.history.Len() < holdFrames {
		return Gesture{}, false
	}
	var pts []detector.Keypoint
	for back := holdFrames - 1; back >= 0; back-- {
		if kp, ok := r.history.Latest(part, back, r.cfg.ConfidenceThreshold); ok {
			pts = append(pts, kp)
		}
	}
	if len(pts) < holdFrames {
		return Gesture{}, false
	}

	var avgX, avgY float64
	for _, p := range pts {
		avgX += p.X
		avgY += p.Y
	}
	avgX /= float64(len(pts))
	avgY /= float64(len(pts))

	var variance float64
	for _, p := range pts {
		variance += (p.X-avgX)*(p.X-avgX) + (p.Y-avgY)*(p.Y-avgY)
	}
	variance /= float64(len(pts))

	if variance >= r.cfg.HoldEpsilon {
		return Gesture{}, false
	}
	return Gesture{
		Type:       Hold,
		Part:       part,
		Confidence: clamp01(1 - variance/r.cfg.HoldEpsilon),
		Params: map[string]float64{
			"duration": float64(len(pts)),
			"x":        avgX,
			"y":        avgY,
			"variance": variance,
		},
	}, true
}

func (r *Recognizer) distance(parts []detector.BodyPart) (Gesture, bool) {
	if len(parts) < 2 {
		return Gesture{}, false
	}
	var kps []detector.Keypoint
	for _, part := range parts {
		if kp, ok := r.history.Latest(part, 0, r.cfg.ConfidenceThreshold); ok {
			kps = append(kps, kp)
		}
	}
	if len(kps) < 2 {
		return Gesture{}, false
	}

	var sum float64
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for i := 0; i < len(kps)-1; i++ {
		for j := i + 1; j < len(kps); j++ {
			d := kps[i].Distance(kps[j])
			sum += d
			lo, hi = min(lo, d), max(hi, d)
			n++
		}
	}
	return Gesture{
		Type:       Distance,
		Confidence: 1,
		Params: map[string]float64{
			"distance":    sum / float64(n),
			"minDistance": lo,
			"maxDistance": hi,
		},
	}, true
}

func (r *Recognizer) circle(part detector.BodyPart) (Gesture, bool) {
	if !part.IsWrist() || r.history.Len() < circleFrames {
		return Gesture{}, false
	}
	track := r.history.Track(part, r.cfg.ConfidenceThreshold)
	extent := pathExtent(track)
	if len(track) < circleFrames || extent < r.cfg.CircleMinExtent {
		return Gesture{}, false
	}
	// an open arc is not a circle
	if pointDistance(track[0], track[len(track)-1]) > extent/2 {
		return Gesture{}, false
	}
	matches := r.circles.Match(track)
	if len(matches) == 0 {
		return Gesture{}, false
	}
	best := matches[0]
	return Gesture{
		Type:       Circle,
		Part:       part,
		Confidence: best.Score,
		Params: map[string]float64{
			"distance": best.Distance,
			"radius":   extent / 2,
		},
	}, true
}

// clap fires on the frame where the wrists close to within ClapNear after
// being at least ClapApart apart earlier in the history.
func (r *Recognizer) clap(parts []detector.BodyPart) (Gesture, bool) {
	if !contains(parts, detector.LeftWrist) || !contains(parts, detector.RightWrist) {
		return Gesture{}, false
	}
	th := r.cfg.ConfidenceThreshold
	gap := func(back int) (float64, bool) {
		l, ok1 := r.history.Latest(detector.LeftWrist, back, th)
		rt, ok2 := r.history.Latest(detector.RightWrist, back, th)
		if !ok1 || !ok2 {
			return 0, false
		}
		return l.Distance(rt), true
	}

	cur, ok := gap(0)
	if !ok || cur >= r.cfg.ClapNear {
		return Gesture{}, false
	}
	if prev, ok := gap(1); !ok || prev < r.cfg.ClapNear {
		return Gesture{}, false
	}

	widest := 0.0
	for back := 1; back < r.history.Len(); back++ {
		if d, ok := gap(back); ok {
			widest = max(widest, d)
		}
	}
	if widest < r.cfg.ClapApart {
		return Gesture{}, false
	}
	return Gesture{
		Type:       Clap,
		Confidence: clamp01((widest - cur) / r.cfg.ClapApart),
		Params: map[string]float64{
			"distance": cur,
			"apart":    widest,
		},
	}, true
}

// Barycenter returns the mean position of the confident keypoints.
func Barycenter(kps []detector.Keypoint, threshold float64) (x, y float64, ok bool) {
	n := 0
	for _, kp := range kps {
		if kp.Valid(threshold) {
			x += kp.X
			y += kp.Y
			n++
		}
	}
	if n == 0 {
		return 0, 0, false
	}
	return x / float64(n), y / float64(n), true
}

func contains(parts []detector.BodyPart, p detector.BodyPart) bool {
	for _, q := range parts {
		if q == p {
			return true
		}
	}
	return false
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
