package gesture

import (
	"time"

	"github.com/ayusman/nritya/internal/detector"
)

// DefaultCapacity is the number of frames kept by a History.
const DefaultCapacity = 10

type frame struct {
	idx map[string]detector.Keypoint
	at  time.Time
}

// History is a bounded FIFO of pose frames. Pushing onto a full history
// evicts the oldest frame.
type History struct {
	frames []frame
	start  int
	size   int
}

// NewHistory creates a history holding up to capacity frames.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{frames: make([]frame, capacity)}
}

// Push appends a pose. A nil pose is recorded as a frame with no keypoints.
func (h *History) Push(p *detector.Pose, at time.Time) {
	f := frame{idx: p.Index(), at: at}
	if h.size < len(h.frames) {
		h.frames[(h.start+h.size)%len(h.frames)] = f
		h.size++
		return
	}
	h.frames[h.start] = f
	h.start = (h.start + 1) % len(h.frames)
}

// Len returns the number of frames held.
func (h *History) Len() int {
	return h.size
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.frames)
}

// at returns frame i, oldest first.
func (h *History) at(i int) frame {
	return h.frames[(h.start+i)%len(h.frames)]
}

// Track returns the confident positions of part across the history, oldest
// first, skipping frames where it was missing.
func (h *History) Track(part detector.BodyPart, threshold float64) []PathPoint {
	out := make([]PathPoint, 0, h.size)
	for i := 0; i < h.size; i++ {
		f := h.at(i)
		kp, ok := detector.Lookup(f.idx, part)
		if !ok || !kp.Valid(threshold) {
			continue
		}
		out = append(out, PathPoint{X: kp.X, Y: kp.Y, At: f.at})
	}
	return out
}

// Latest returns the confident keypoint of part in frame len-1-back.
func (h *History) Latest(part detector.BodyPart, back int, threshold float64) (detector.Keypoint, bool) {
	if back < 0 || back >= h.size {
		return detector.Keypoint{}, false
	}
	kp, ok := detector.Lookup(h.at(h.size-1-back).idx, part)
	if !ok || !kp.Valid(threshold) {
		return detector.Keypoint{}, false
	}
	return kp, true
}

// Reset empties the history.
func (h *History) Reset() {
	clear(h.frames)
	h.start, h.size = 0, 0
}
