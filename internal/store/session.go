package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Session is one recorded performance.
type Session struct {
	ID        string     `json:"id"`
	Mode      string     `json:"mode"`
	Preset    string     `json:"preset"`
	StartedAt time.Time  `json:"startedAt"`
	StoppedAt *time.Time `json:"stoppedAt,omitempty"`
	NoteCount int        `json:"noteCount"`
}

// SessionEvent is one event emitted during a session. AtMs is relative to
// the session start.
type SessionEvent struct {
	SessionID string          `json:"sessionId"`
	Seq       int             `json:"seq"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	AtMs      int64           `json:"atMs"`
}

// SessionRepository stores sessions and their events.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session.
func (r *SessionRepository) Create(s *Session) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, mode, preset, started_at, note_count) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Mode, s.Preset, s.StartedAt, s.NoteCount,
	)
	return err
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(id string) (*Session, error) {
	return scanSession(r.db.QueryRow(
		`SELECT id, mode, preset, started_at, stopped_at, note_count FROM sessions WHERE id = ?`, id))
}

// List returns sessions, newest first, at most limit (0 means all).
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, mode, preset, started_at, stopped_at, note_count
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Finish marks a session stopped and records its note count.
func (r *SessionRepository) Finish(id string, stoppedAt time.Time, noteCount int) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET stopped_at = ?, note_count = ? WHERE id = ?`,
		stoppedAt, noteCount, id,
	)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Delete removes a session and its events.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// AppendEvents inserts events for a session in a single transaction.
func (r *SessionRepository) AppendEvents(sessionID string, events []SessionEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO session_events (session_id, seq, kind, payload, at_ms) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		payload := e.Payload
		if payload == nil {
			payload = json.RawMessage("{}")
		}
		if _, err := stmt.Exec(sessionID, e.Seq, e.Kind, string(payload), e.AtMs); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Events returns the events of a session in sequence order.
func (r *SessionRepository) Events(sessionID string) ([]SessionEvent, error) {
	rows, err := r.db.Query(
		`SELECT session_id, seq, kind, payload, at_ms
		 FROM session_events WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var e SessionEvent
		var payload string
		if err := rows.Scan(&e.SessionID, &e.Seq, &e.Kind, &payload, &e.AtMs); err != nil {
			return nil, err
		}
		e.Payload = json.RawMessage(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanSession(row scanner) (*Session, error) {
	s := &Session{}
	var stopped sql.NullTime
	if err := row.Scan(&s.ID, &s.Mode, &s.Preset, &s.StartedAt, &stopped, &s.NoteCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if stopped.Valid {
		t := stopped.Time
		s.StoppedAt = &t
	}
	return s, nil
}
