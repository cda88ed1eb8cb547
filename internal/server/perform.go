package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/nritya/internal/detector"
	"github.com/ayusman/nritya/internal/engine"
	"github.com/ayusman/nritya/internal/gesture"
	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/music"
	"github.com/ayusman/nritya/internal/sink"
	"github.com/ayusman/nritya/internal/store"
)

// Client message types.
const (
	MsgStart  = "start"
	MsgFrame  = "frame"
	MsgPedals = "pedals"
	MsgStop   = "stop"
)

// Server message types, besides the sink event kinds.
const (
	MsgStarted = "started"
	MsgStopped = "stopped"
	MsgError   = "error"
)

const maxMessageSize = 1 << 20

// clientMessage is anything a performer sends.
type clientMessage struct {
	Type string `json:"type"`

	// start
	Mode    string               `json:"mode,omitempty"`
	Preset  string               `json:"preset,omitempty"`
	Mapping *music.MappingConfig `json:"mapping,omitempty"`
	// Pedals is a pedal preset name or a letter to position object.
	Pedals json.RawMessage `json:"pedals,omitempty"`

	// frame
	Pose  *detector.Pose           `json:"pose,omitempty"`
	Hands []detector.HandLandmarks `json:"hands,omitempty"`
	// T is the capture time in Unix milliseconds.
	T int64 `json:"t,omitempty"`
}

// serverMessage is anything sent back to a performer.
type serverMessage struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Session string            `json:"session,omitempty"`
	Mode    string            `json:"mode,omitempty"`
	Note    *music.NoteEvent  `json:"note,omitempty"`
	Chord   *music.ChordEvent `json:"chord,omitempty"`
	Pluck   *harp.Pluck       `json:"pluck,omitempty"`
	Gesture *gesture.Gesture  `json:"gesture,omitempty"`
	Pedals  harp.Pedals       `json:"pedals,omitempty"`
	Notes   int               `json:"notes,omitempty"`
	Error   string            `json:"error,omitempty"`
	Field   string            `json:"field,omitempty"`
}

// PerformHandler runs one engine session per WebSocket connection. Frames
// arrive from the browser; notes, chords, plucks and gestures go back to it
// and to the shared sink.
type PerformHandler struct {
	cfg    Config
	log    *zap.Logger
	active atomic.Int64
}

// NewPerformHandler creates a handler using cfg's store, engine defaults and
// sink.
func NewPerformHandler(cfg Config) *PerformHandler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &PerformHandler{cfg: cfg, log: log}
}

// Active returns the number of running performances.
func (h *PerformHandler) Active() int {
	return int(h.active.Load())
}

// ServeHTTP upgrades the connection and serves performer messages until the
// client disconnects.
func (h *PerformHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	p := &performer{h: h, conn: conn, log: h.log}
	defer p.stop()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				h.log.Debug("perform connection closed", zap.Error(err))
			}
			return
		}
		p.handle(r.Context(), msg)
	}
}

// performer is the state of one connection.
type performer struct {
	h    *PerformHandler
	conn *websocket.Conn
	log  *zap.Logger

	writeMu sync.Mutex

	id       string
	session  *engine.Session
	emitter  *engine.Emitter
	recorder *sink.Recorder
	started  time.Time
}

func (p *performer) send(m serverMessage) error {
	m.ID = uuid.NewString()
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(m)
}

func (p *performer) sendError(err error) {
	m := serverMessage{Type: MsgError, Error: err.Error()}
	var ce *music.ConfigurationError
	if errors.As(err, &ce) {
		m.Field = ce.Field
	}
	p.send(m)
}

// Emit implements sink.Sink by forwarding events to the client.
func (p *performer) Emit(_ context.Context, e sink.Event) error {
	return p.send(serverMessage{
		Type:    string(e.Kind),
		Session: p.id,
		Note:    e.Note,
		Chord:   e.Chord,
		Pluck:   e.Pluck,
		Gesture: e.Gesture,
	})
}

func (p *performer) handle(ctx context.Context, msg clientMessage) {
	switch msg.Type {
	case MsgStart:
		if err := p.start(msg); err != nil {
			p.sendError(err)
		}
	case MsgFrame:
		if p.session == nil {
			p.sendError(errors.New("performance not started"))
			return
		}
		frame := detector.Frame{Pose: msg.Pose, Hands: msg.Hands, Timestamp: time.Now()}
		if msg.T > 0 {
			frame.Timestamp = time.UnixMilli(msg.T)
		}
		res, err := p.session.Tick(frame)
		if err != nil {
			p.sendError(err)
			return
		}
		p.emitter.Emit(ctx, res)
	case MsgPedals:
		if p.session == nil {
			p.sendError(errors.New("performance not started"))
			return
		}
		pedals, err := p.h.resolvePedals(msg.Pedals)
		if err == nil {
			err = p.session.SetPedals(pedals)
		}
		if err != nil {
			p.sendError(err)
			return
		}
		p.send(serverMessage{Type: MsgPedals, Session: p.id, Pedals: p.session.Pedals()})
	case MsgStop:
		notes := p.stop()
		p.send(serverMessage{Type: MsgStopped, Session: p.id, Notes: notes})
	default:
		p.sendError(fmt.Errorf("unknown message type %q", msg.Type))
	}
}

// start replaces any running performance with a new one.
func (p *performer) start(msg clientMessage) error {
	cfg := p.h.cfg.Engine
	if msg.Mode != "" {
		mode, err := engine.ParseMode(msg.Mode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}

	var presetName string
	if cfg.Mapping != nil {
		presetName = cfg.Mapping.Name
	}
	switch {
	case msg.Mapping != nil:
		cfg.Mapping = msg.Mapping
		presetName = msg.Mapping.Name
	case msg.Preset != "":
		m, err := p.h.resolvePreset(msg.Preset)
		if err != nil {
			return err
		}
		cfg.Mapping = m
		presetName = msg.Preset
	}
	if len(msg.Pedals) > 0 {
		pedals, err := p.h.resolvePedals(msg.Pedals)
		if err != nil {
			return err
		}
		cfg.Pedals = pedals
	}
	cfg.Logger = p.log

	session, err := engine.NewSession(cfg)
	if err != nil {
		return err
	}

	p.stop()
	p.id = uuid.NewString()
	p.started = time.Now()
	p.session = session

	sinks := sink.Multi{p}
	if st := p.h.cfg.Store; st != nil {
		if err := st.Sessions().Create(&store.Session{
			ID: p.id, Mode: string(cfg.Mode), Preset: presetName, StartedAt: p.started,
		}); err != nil {
			p.log.Error("record session", zap.Error(err))
		} else {
			p.recorder = sink.NewRecorder(st.Sessions(), p.id, p.started)
			sinks = append(sinks, p.recorder)
		}
	}
	if p.h.cfg.Sink != nil {
		sinks = append(sinks, p.h.cfg.Sink)
	}
	p.emitter = engine.NewEmitter(sinks, p.log)
	p.h.active.Add(1)

	p.log.Info("performance started",
		zap.String("session", p.id),
		zap.String("mode", string(cfg.Mode)),
		zap.String("preset", presetName),
	)
	return p.send(serverMessage{Type: MsgStarted, Session: p.id, Mode: string(cfg.Mode)})
}

// stop ends the running performance, if any, and returns its note count.
func (p *performer) stop() int {
	if p.session == nil {
		return 0
	}
	p.session.Stop()
	p.session = nil
	p.h.active.Add(-1)

	var notes int
	if p.recorder != nil {
		notes = p.recorder.NoteCount()
		if err := p.recorder.Flush(); err != nil {
			p.log.Error("flush session events", zap.Error(err))
		}
		if err := p.h.cfg.Store.Sessions().Finish(p.id, time.Now(), notes); err != nil {
			p.log.Error("finish session", zap.Error(err))
		}
		p.recorder = nil
	}
	p.log.Info("performance stopped",
		zap.String("session", p.id),
		zap.Int("notes", notes),
		zap.Int64("sink_failures", p.emitter.Failures()),
	)
	return notes
}

// resolvePreset looks a mapping up by id or name, in the store first and
// then among the built-ins.
func (h *PerformHandler) resolvePreset(name string) (*music.MappingConfig, error) {
	if st := h.cfg.Store; st != nil {
		p, err := st.Presets().GetByID(name)
		if errors.Is(err, store.ErrNotFound) {
			p, err = st.Presets().GetByName(name)
		}
		if err == nil {
			return p.Config, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return music.Preset(name)
}

// resolvePedals accepts a pedal preset name or an explicit pedal object.
func (h *PerformHandler) resolvePedals(raw json.RawMessage) (harp.Pedals, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if st := h.cfg.Store; st != nil {
			if p, err := st.Pedals().Get(name); err == nil {
				return p.Positions, nil
			}
		}
		return harp.Preset(name)
	}

	var pedals harp.Pedals
	if err := json.Unmarshal(raw, &pedals); err != nil {
		return nil, fmt.Errorf("pedals: %w", err)
	}
	if err := pedals.Validate(); err != nil {
		return nil, err
	}
	return pedals, nil
}
