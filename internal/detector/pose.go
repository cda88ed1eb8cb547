// Package detector defines the keypoint model produced by pose and hand
// estimators and the Detector implementations that produce it.
package detector

import (
	"math"
	"time"
)

// Keypoint is a named 2D keypoint in normalized [0,1] image space with the
// origin at the top-left. X is not mirrored.
type Keypoint struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Valid reports whether the keypoint is a usable observation: finite
// coordinates and a score strictly above threshold. NaN never counts as zero.
func (k Keypoint) Valid(threshold float64) bool {
	if math.IsNaN(k.X) || math.IsNaN(k.Y) || math.IsNaN(k.Score) {
		return false
	}
	if math.IsInf(k.X, 0) || math.IsInf(k.Y, 0) {
		return false
	}
	return k.Score > threshold
}

// Distance returns the Euclidean distance between two keypoints.
func (k Keypoint) Distance(o Keypoint) float64 {
	return math.Hypot(k.X-o.X, k.Y-o.Y)
}

// Pose is one body-pose estimate.
type Pose struct {
	Keypoints []Keypoint `json:"keypoints"`
	Score     float64    `json:"score,omitempty"`
}

// Frame is everything the estimators produced for one animation tick.
type Frame struct {
	Pose      *Pose           `json:"pose,omitempty"`
	Hands     []HandLandmarks `json:"hands,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Index maps raw keypoint names to keypoints. Later duplicates win.
func (p *Pose) Index() map[string]Keypoint {
	if p == nil {
		return nil
	}
	idx := make(map[string]Keypoint, len(p.Keypoints))
	for _, kp := range p.Keypoints {
		idx[kp.Name] = kp
	}
	return idx
}
