package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ayusman/nritya/internal/sink"
)

// Events flattens a result into sink events: chords first, then notes,
// plucks and gestures.
func (r Result) Events() []sink.Event {
	events := make([]sink.Event, 0, len(r.Chords)+len(r.Notes)+len(r.Plucks)+len(r.Gestures))
	for _, c := range r.Chords {
		events = append(events, sink.ChordEvent(c, r.At))
	}
	for _, n := range r.Notes {
		events = append(events, sink.NoteEvent(n, r.At))
	}
	for _, p := range r.Plucks {
		events = append(events, sink.PluckEvent(p, r.At))
	}
	for _, g := range r.Gestures {
		events = append(events, sink.GestureEvent(g, r.At))
	}
	return events
}

// Emitter hands tick results to a sink. A sink that fails or panics on one
// event is logged and counted; the remaining events are still delivered.
type Emitter struct {
	sink     sink.Sink
	log      *zap.Logger
	emitted  atomic.Int64
	failures atomic.Int64
}

// NewEmitter creates an emitter writing to s.
func NewEmitter(s sink.Sink, log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{sink: s, log: log}
}

// Emit delivers every event of res and returns how many were accepted.
func (e *Emitter) Emit(ctx context.Context, res Result) int {
	var ok int
	for _, ev := range res.Events() {
		if err := e.deliver(ctx, ev); err != nil {
			e.failures.Add(1)
			e.log.Warn("sink rejected event", zap.String("kind", string(ev.Kind)), zap.Error(err))
			continue
		}
		ok++
	}
	e.emitted.Add(int64(ok))
	return ok
}

func (e *Emitter) deliver(ctx context.Context, ev sink.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return e.sink.Emit(ctx, ev)
}

// Emitted returns the number of delivered events.
func (e *Emitter) Emitted() int64 {
	return e.emitted.Load()
}

// Failures returns the number of events a sink rejected.
func (e *Emitter) Failures() int64 {
	return e.failures.Load()
}
