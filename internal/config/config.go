// Package config loads nritya configuration from defaults, an optional YAML
// file and NRITYA_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultAddr     = ":8080"
	DefaultPreset   = "intuitive"
	DefaultMode     = "melody"
	DefaultLogLevel = "info"
	// NoCamera disables the local capture pipeline.
	NoCamera = -1
)

// Config is the top-level application configuration.
type Config struct {
	Addr        string   `yaml:"addr"`
	DBPath      string   `yaml:"db_path"`
	StaticDir   string   `yaml:"static_dir"`
	LogLevel    string   `yaml:"log_level"`
	Development bool     `yaml:"development"`
	CameraID    int      `yaml:"camera_id"`
	SoundFont   string   `yaml:"soundfont"`
	Preset      string   `yaml:"preset"`
	Mode        string   `yaml:"mode"`
	Tray        bool     `yaml:"tray"`
	Detector    Detector `yaml:"detector"`
	Tuning      Tuning   `yaml:"tuning"`
}

// Detector configures the pose/hand detector subprocess.
type Detector struct {
	Script        string  `yaml:"script"`
	Python        string  `yaml:"python"`
	MaxHands      int     `yaml:"max_hands"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// Tuning holds the movement-to-music thresholds.
type Tuning struct {
	// Constrained selects the mobile/low-power profile: higher confidence
	// threshold and a reduced harp.
	Constrained         bool                     `yaml:"constrained"`
	ConfidenceThreshold float64                  `yaml:"confidence_threshold"`
	MovementThreshold   float64                  `yaml:"movement_threshold"`
	MinInterval         map[string]time.Duration `yaml:"min_interval"`
	ChordThreshold      float64                  `yaml:"chord_threshold"`
	ChordCooldown       time.Duration            `yaml:"chord_cooldown"`
	HarpWidth           float64                  `yaml:"harp_width"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:     DefaultAddr,
		DBPath:   defaultDBPath(),
		LogLevel: DefaultLogLevel,
		CameraID: NoCamera,
		Preset:   DefaultPreset,
		Mode:     DefaultMode,
		Detector: Detector{
			MaxHands:      2,
			MinConfidence: 0.5,
		},
		Tuning: Tuning{
			ConfidenceThreshold: 0.3,
			MovementThreshold:   0.025,
			ChordThreshold:      1.0,
			ChordCooldown:       2 * time.Second,
			HarpWidth:           1.0,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.applyProfile()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports obviously unusable settings.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	t := c.Tuning
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold >= 1 {
		errs = append(errs, fmt.Errorf("confidence_threshold %v out of [0,1)", t.ConfidenceThreshold))
	}
	if t.MovementThreshold <= 0 {
		errs = append(errs, fmt.Errorf("movement_threshold must be positive, got %v", t.MovementThreshold))
	}
	if t.ChordThreshold <= 0 {
		errs = append(errs, fmt.Errorf("chord_threshold must be positive, got %v", t.ChordThreshold))
	}
	if t.HarpWidth <= 0 {
		errs = append(errs, fmt.Errorf("harp_width must be positive, got %v", t.HarpWidth))
	}
	return errors.Join(errs...)
}

// applyProfile raises the confidence threshold on constrained devices.
func (c *Config) applyProfile() {
	if c.Tuning.Constrained && c.Tuning.ConfidenceThreshold < 0.45 {
		c.Tuning.ConfidenceThreshold = 0.45
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("NRITYA_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("NRITYA_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("NRITYA_STATIC_DIR"); v != "" {
		c.StaticDir = v
	}
	if v := os.Getenv("NRITYA_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("NRITYA_SOUNDFONT"); v != "" {
		c.SoundFont = v
	}
	if v := os.Getenv("NRITYA_PRESET"); v != "" {
		c.Preset = v
	}
	if v := os.Getenv("NRITYA_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("NRITYA_CAMERA"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NRITYA_CAMERA: %w", err)
		}
		c.CameraID = id
	}
	if v := os.Getenv("NRITYA_CONSTRAINED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NRITYA_CONSTRAINED: %w", err)
		}
		c.Tuning.Constrained = b
	}
	return nil
}

// defaultDBPath returns ~/.nritya/nritya.db, or a relative path when the
// home directory is unknown.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "nritya.db"
	}
	return home + string(os.PathSeparator) + ".nritya" + string(os.PathSeparator) + "nritya.db"
}
