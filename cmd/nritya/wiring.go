package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/nritya/internal/config"
	"github.com/ayusman/nritya/internal/engine"
	"github.com/ayusman/nritya/internal/harp"
	"github.com/ayusman/nritya/internal/music"
	"github.com/ayusman/nritya/internal/store"
)

// engineConfig turns the loaded configuration into session defaults. The
// mapping is looked up in st first, then among the built-in presets.
func engineConfig(cfg config.Config, st *store.Store) (engine.Config, error) {
	ec := engine.DefaultConfig()

	mode, err := engine.ParseMode(cfg.Mode)
	if err != nil {
		return ec, err
	}
	ec.Mode = mode

	mapping, err := resolvePreset(st, cfg.Preset)
	if err != nil {
		return ec, err
	}
	ec.Mapping = mapping

	t := cfg.Tuning
	ec.Mapper.ConfidenceThreshold = t.ConfidenceThreshold
	ec.Mapper.MovementThreshold = t.MovementThreshold
	if len(t.MinInterval) > 0 {
		intervals := make(map[music.Role]time.Duration, len(ec.Mapper.MinInterval))
		for r, d := range ec.Mapper.MinInterval {
			intervals[r] = d
		}
		for r, d := range t.MinInterval {
			intervals[music.Role(r)] = d
		}
		ec.Mapper.MinInterval = intervals
	}

	ec.Chord.Threshold = t.ChordThreshold
	if t.ChordCooldown > 0 {
		ec.Chord.Cooldown = t.ChordCooldown
	}
	ec.Chord.ConfidenceThreshold = t.ConfidenceThreshold
	ec.Gesture.ConfidenceThreshold = t.ConfidenceThreshold
	ec.Layout = harp.NewLayout(t.HarpWidth, t.Constrained)
	return ec, nil
}

func resolvePreset(st *store.Store, name string) (*music.MappingConfig, error) {
	if st != nil {
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

// findWebDir searches "web", "../web", "../../web" and ~/.nritya/web and
// returns the first existing directory, or "".
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".nritya", "web")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
