package music

import (
	"time"

	"github.com/ayusman/nritya/internal/detector"
)

// NoteEvent is a single note handed to a sink.
type NoteEvent struct {
	Pitch      string                    `json:"pitch"`
	Duration   string                    `json:"duration"`
	Velocity   float64                   `json:"velocity"`
	Instrument Instrument                `json:"instrument,omitempty"`
	Source     string                    `json:"source,omitempty"`
	Controls   map[AxisParameter]float64 `json:"controls,omitempty"`
	// At delays the note relative to the tick that produced it.
	At time.Duration `json:"at,omitempty"`
}

// ChordEvent is a group of notes played together.
type ChordEvent struct {
	Name       string     `json:"name,omitempty"`
	Notes      []string   `json:"notes"`
	Duration   string     `json:"duration"`
	Velocity   float64    `json:"velocity"`
	Instrument Instrument `json:"instrument,omitempty"`
}

// MIDI returns the MIDI number of the event pitch.
func (e NoteEvent) MIDI() (int, error) {
	return NoteToMIDI(e.Pitch)
}

// SourcePart returns the body part that produced the event, if any.
func (e NoteEvent) SourcePart() (detector.BodyPart, bool) {
	return detector.ParseBodyPart(e.Source)
}
