package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayusman/nritya/internal/music"
)

// Preset is a named music mapping configuration.
type Preset struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Builtin     bool                 `json:"builtin"`
	Config      *music.MappingConfig `json:"config"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// PresetRepository provides CRUD operations for presets.
type PresetRepository struct {
	db *sql.DB
}

// Presets returns the preset repository for this store.
func (s *Store) Presets() *PresetRepository {
	return &PresetRepository{db: s.db}
}

const presetColumns = `id, name, description, builtin, config, created_at, updated_at`

// Create inserts a new preset.
func (r *PresetRepository) Create(p *Preset) error {
	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("encode preset config: %w", err)
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err = r.db.Exec(
		`INSERT INTO presets (`+presetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Builtin, string(cfg), p.CreatedAt, p.UpdatedAt,
	)
	return uniqueErr(err)
}

// GetByID retrieves a preset by its ID.
func (r *PresetRepository) GetByID(id string) (*Preset, error) {
	return scanPreset(r.db.QueryRow(`SELECT `+presetColumns+` FROM presets WHERE id = ?`, id))
}

// GetByName retrieves a preset by its name.
func (r *PresetRepository) GetByName(name string) (*Preset, error) {
	return scanPreset(r.db.QueryRow(`SELECT `+presetColumns+` FROM presets WHERE name = ?`, name))
}

// List returns all presets, built-ins first, then by name.
func (r *PresetRepository) List() ([]*Preset, error) {
	rows, err := r.db.Query(`SELECT ` + presetColumns + ` FROM presets ORDER BY builtin DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []*Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return presets, nil
}

// Update replaces the name, description and config of a preset.
func (r *PresetRepository) Update(p *Preset) error {
	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("encode preset config: %w", err)
	}
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE presets SET name = ?, description = ?, config = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, string(cfg), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return uniqueErr(err)
	}
	return expectOne(result)
}

// Delete removes a preset by its ID.
func (r *PresetRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM presets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (*Preset, error) {
	p := &Preset{}
	var cfg string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Builtin, &cfg, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Config = &music.MappingConfig{}
	if err := json.Unmarshal([]byte(cfg), p.Config); err != nil {
		return nil, fmt.Errorf("decode preset %s: %w", p.ID, err)
	}
	return p, nil
}

func expectOne(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func uniqueErr(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
