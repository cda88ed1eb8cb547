package music

import (
	"math"
	"time"

	"github.com/ayusman/nritya/internal/detector"
)

// Tracker owns the per-body-part state of one performance.
type Tracker struct {
	mapper *Mapper
	states map[detector.BodyPart]*PartState
}

// NewTracker creates an empty tracker using mapper.
func NewTracker(mapper *Mapper) *Tracker {
	return &Tracker{
		mapper: mapper,
		states: make(map[detector.BodyPart]*PartState),
	}
}

// Observe maps every enabled part of cfg found in pose. Parts are visited in
// a stable order so the returned events are deterministic. A configuration
// error aborts the tick.
func (t *Tracker) Observe(pose *detector.Pose, cfg *MappingConfig, now time.Time) ([]NoteEvent, error) {
	parts := cfg.EnabledParts()
	if len(parts) == 0 || pose == nil {
		return nil, nil
	}
	found := detector.Resolve(pose, parts)

	var events []NoteEvent
	for _, part := range parts {
		kp, ok := found[part]
		if !ok {
			continue
		}
		mapping := cfg.Mappings[part]
		if mapping.BodyPart == "" {
			mapping.BodyPart = part
		}
		ev, next, err := t.mapper.Map(kp, t.states[part], mapping, now)
		if err != nil {
			return events, err
		}
		if next != nil {
			t.states[part] = next
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, nil
}

// State returns a copy of the state kept for part.
func (t *Tracker) State(part detector.BodyPart) (PartState, bool) {
	s, ok := t.states[part]
	if !ok {
		return PartState{}, false
	}
	return *s, true
}

// Len returns the number of tracked parts.
func (t *Tracker) Len() int {
	return len(t.states)
}

// Reset discards all per-part state.
func (t *Tracker) Reset() {
	clear(t.states)
}

// Tempo derives a tempo from the average height of the confident keypoints:
// 60 BPM with everything at the bottom of the frame, 180 at the top.
func Tempo(pose *detector.Pose, threshold float64) (int, bool) {
	if pose == nil {
		return 0, false
	}
	var sum float64
	var n int
	for _, kp := range pose.Keypoints {
		if kp.Valid(threshold) {
			sum += clamp01(kp.Y)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	avg := sum / float64(n)
	return int(math.Floor(60 + (1-avg)*120)), true
}
