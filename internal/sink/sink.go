// Package sink delivers engine output (notes, chords, harp plucks and
// gestures) to its consumers: the synthesizer, the log, session recordings
// and WebSocket clients.
package sink

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/nritya/internal/gesture"
	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/music"
)

// Kind identifies the payload of an Event.
type Kind string

const (
	KindNote    Kind = "note"
	KindChord   Kind = "chord"
	KindPluck   Kind = "pluck"
	KindGesture Kind = "gesture"
)

// Event is one engine output. Exactly one payload field is set, matching
// Kind.
type Event struct {
	Kind    Kind              `json:"kind"`
	Note    *music.NoteEvent  `json:"note,omitempty"`
	Chord   *music.ChordEvent `json:"chord,omitempty"`
	Pluck   *harp.Pluck       `json:"pluck,omitempty"`
	Gesture *gesture.Gesture  `json:"gesture,omitempty"`
	At      time.Time         `json:"at"`
}

// Payload returns the set payload field.
func (e Event) Payload() any {
	switch e.Kind {
	case KindNote:
		return e.Note
	case KindChord:
		return e.Chord
	case KindPluck:
		return e.Pluck
	case KindGesture:
		return e.Gesture
	}
	return nil
}

// Sounding reports whether the event produces sound.
func (e Event) Sounding() bool {
	return e.Kind == KindNote || e.Kind == KindChord || e.Kind == KindPluck
}

// NoteEvent wraps a note.
func NoteEvent(n music.NoteEvent, at time.Time) Event {
	return Event{Kind: KindNote, Note: &n, At: at}
}

// ChordEvent wraps a chord.
func ChordEvent(c music.ChordEvent, at time.Time) Event {
	return Event{Kind: KindChord, Chord: &c, At: at}
}

// PluckEvent wraps a harp pluck.
func PluckEvent(p harp.Pluck, at time.Time) Event {
	return Event{Kind: KindPluck, Pluck: &p, At: at}
}

// GestureEvent wraps a gesture.
func GestureEvent(g gesture.Gesture, at time.Time) Event {
	return Event{Kind: KindGesture, Gesture: &g, At: at}
}

// Sink consumes events. Emit must not retain e after returning.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// Func adapts a function to Sink.
type Func func(ctx context.Context, e Event) error

// Emit calls f.
func (f Func) Emit(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Multi fans each event out to every sink. A failing sink does not stop the
// others; their errors are joined.
type Multi []Sink

// Emit delivers e to every sink.
func (m Multi) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes events to a zap logger. Sounding events go to debug, gestures
// to info.
type Log struct {
	log *zap.Logger
}

// NewLog creates a logging sink.
func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log}
}

// Emit logs e.
func (l *Log) Emit(_ context.Context, e Event) error {
	switch e.Kind {
	case KindNote:
		l.log.Debug("note",
			zap.String("pitch", e.Note.Pitch),
			zap.String("duration", e.Note.Duration),
			zap.Float64("velocity", e.Note.Velocity),
			zap.String("instrument", string(e.Note.Instrument)),
			zap.String("source", e.Note.Source),
		)
	case KindChord:
		l.log.Debug("chord",
			zap.String("name", e.Chord.Name),
			zap.Strings("notes", e.Chord.Notes),
			zap.Float64("velocity", e.Chord.Velocity),
		)
	case KindPluck:
		l.log.Debug("pluck",
			zap.String("point", e.Pluck.Point),
			zap.Int("string", e.Pluck.String),
			zap.String("note", e.Pluck.Note),
			zap.Duration("at", e.Pluck.At),
			zap.Bool("glissando", e.Pluck.Glissando),
		)
	case KindGesture:
		l.log.Info("gesture",
			zap.String("type", string(e.Gesture.Type)),
			zap.String("part", string(e.Gesture.Part)),
			zap.Float64("confidence", e.Gesture.Confidence),
		)
	}
	return nil
}
