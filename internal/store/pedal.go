package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/nritya/internal/harp"
)

// PedalPreset is a named harp pedal setting.
type PedalPreset struct {
	Name      string      `json:"name"`
	Positions harp.Pedals `json:"positions"`
	Builtin   bool        `json:"builtin"`
	CreatedAt time.Time   `json:"createdAt"`
}

// PedalRepository provides CRUD operations for pedal presets.
type PedalRepository struct {
	db *sql.DB
}

// Pedals returns the pedal preset repository for this store.
func (s *Store) Pedals() *PedalRepository {
	return &PedalRepository{db: s.db}
}

// Create inserts a new pedal preset.
func (r *PedalRepository) Create(p *PedalPreset) error {
	positions, err := json.Marshal(p.Positions.Clone())
	if err != nil {
		return fmt.Errorf("encode pedals: %w", err)
	}
	p.CreatedAt = time.Now()

	_, err = r.db.Exec(
		`INSERT INTO pedal_presets (name, positions, builtin, created_at) VALUES (?, ?, ?, ?)`,
		p.Name, string(positions), p.Builtin, p.CreatedAt,
	)
	return uniqueErr(err)
}

// Get retrieves a pedal preset by name.
func (r *PedalRepository) Get(name string) (*PedalPreset, error) {
	return scanPedal(r.db.QueryRow(
		`SELECT name, positions, builtin, created_at FROM pedal_presets WHERE name = ?`, name))
}

// List returns every pedal preset, built-ins first.
func (r *PedalRepository) List() ([]*PedalPreset, error) {
	rows, err := r.db.Query(
		`SELECT name, positions, builtin, created_at FROM pedal_presets ORDER BY builtin DESC, created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PedalPreset
	for rows.Next() {
		p, err := scanPedal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a pedal preset.
func (r *PedalRepository) Delete(name string) error {
	result, err := r.db.Exec(`DELETE FROM pedal_presets WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return expectOne(result)
}

func scanPedal(row scanner) (*PedalPreset, error) {
	p := &PedalPreset{}
	var positions string
	if err := row.Scan(&p.Name, &positions, &p.Builtin, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(positions), &p.Positions); err != nil {
		return nil, fmt.Errorf("decode pedals %s: %w", p.Name, err)
	}
	return p, nil
}
