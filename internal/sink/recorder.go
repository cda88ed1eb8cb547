package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/nritya/internal/gesture"
	"github.com/ayusman/nritya/internal/store"
)

// FlushSize is the number of pending events that triggers a write to the
// store from Emit.
const FlushSize = 256

// EventStore persists recorded session events.
type EventStore interface {
	AppendEvents(sessionID string, events []store.SessionEvent) error
}

// Recorder keeps the events of one session in memory and writes them to an
// EventStore on Flush, or once FlushSize events are pending. Distance
// gestures are continuous measurements reported every frame and are not
// recorded.
type Recorder struct {
	mu        sync.Mutex
	store     EventStore
	sessionID string
	start     time.Time
	seq       int
	pending   []store.SessionEvent
	notes     int
}

// NewRecorder records events for sessionID. Event times are stored relative
// to start. A nil store keeps events in memory only.
func NewRecorder(es EventStore, sessionID string, start time.Time) *Recorder {
	return &Recorder{store: es, sessionID: sessionID, start: start}
}

// Emit appends e to the pending events.
func (r *Recorder) Emit(_ context.Context, e Event) error {
	if e.Kind == KindGesture && e.Gesture != nil && e.Gesture.Type == gesture.Distance {
		return nil
	}
	payload, err := json.Marshal(e.Payload())
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Kind, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	at := e.At.Sub(r.start).Milliseconds()
	if at < 0 {
		at = 0
	}
	r.pending = append(r.pending, store.SessionEvent{
		SessionID: r.sessionID,
		Seq:       r.seq,
		Kind:      string(e.Kind),
		Payload:   payload,
		AtMs:      at,
	})
	r.seq++
	if e.Kind == KindNote || e.Kind == KindPluck {
		r.notes++
	}
	if r.store != nil && len(r.pending) >= FlushSize {
		return r.flush()
	}
	return nil
}

// Pending returns a copy of the events not yet flushed.
func (r *Recorder) Pending() []store.SessionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.SessionEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

// NoteCount returns the number of notes and plucks recorded so far.
func (r *Recorder) NoteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes
}

// Flush writes pending events to the store. On failure the events stay
// pending.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flush()
}

func (r *Recorder) flush() error {
	if r.store == nil || len(r.pending) == 0 {
		return nil
	}
	if err := r.store.AppendEvents(r.sessionID, r.pending); err != nil {
		return fmt.Errorf("flush session %s: %w", r.sessionID, err)
	}
	r.pending = r.pending[:0]
	return nil
}
