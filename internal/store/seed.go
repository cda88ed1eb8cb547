package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/music"
)

// Seed inserts the built-in mapping presets and pedal presets. Existing rows
// are left untouched, so user edits survive restarts.
func (s *Store) Seed() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	presets := music.Presets()
	for _, id := range music.PresetIDs() {
		cfg := presets[id]
		data, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode preset %s: %w", id, err)
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO presets (id, name, description, builtin, config, created_at, updated_at)
			 VALUES (?, ?, ?, 1, ?, ?, ?)`,
			id, cfg.Name, cfg.Description, string(data), now, now,
		); err != nil {
			return fmt.Errorf("seed preset %s: %w", id, err)
		}
	}

	for i, name := range harp.PresetNames {
		pedals, _ := harp.Preset(name)
		data, err := json.Marshal(pedals)
		if err != nil {
			return err
		}
		// keep display order through created_at
		at := now.Add(time.Duration(i) * time.Millisecond)
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO pedal_presets (name, positions, builtin, created_at) VALUES (?, ?, 1, ?)`,
			name, string(data), at,
		); err != nil {
			return fmt.Errorf("seed pedals %s: %w", name, err)
		}
	}

	return tx.Commit()
}
