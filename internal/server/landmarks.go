package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/nritya/internal/detector"
	"github.com/ayusman/nritya/internal/engine"
	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/music"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const writeWait = time.Second

// LandmarksHub broadcasts the keypoints and output of the local capture
// pipeline to every connected WebSocket client.
type LandmarksHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	log     *zap.Logger
}

// NewLandmarksHub creates a hub with no clients.
func NewLandmarksHub(log *zap.Logger) *LandmarksHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &LandmarksHub{
		clients: make(map[*websocket.Conn]bool),
		log:     log,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *LandmarksHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

type landmarksMessage struct {
	Pose       *detector.Pose           `json:"pose,omitempty"`
	Hands      []detector.HandLandmarks `json:"hands,omitempty"`
	Notes      []music.NoteEvent        `json:"notes,omitempty"`
	Plucks     []harp.Pluck             `json:"plucks,omitempty"`
	ChordIndex int                      `json:"chordIndex"`
	Timestamp  int64                    `json:"timestamp"`
}

// Publish sends one frame and what it produced to every client. Clients
// that cannot keep up are dropped.
func (h *LandmarksHub) Publish(f detector.Frame, res engine.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(landmarksMessage{
		Pose:       f.Pose,
		Hands:      f.Hands,
		Notes:      res.Notes,
		Plucks:     res.Plucks,
		ChordIndex: res.ChordIndex,
		Timestamp:  f.Timestamp.UnixMilli(),
	})
	if err != nil {
		h.log.Error("encode landmarks", zap.Error(err))
		return
	}

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("dropping landmarks client", zap.Error(err))
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
