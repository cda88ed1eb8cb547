package music

import (
	"fmt"
	"math"
	"sort"

	"github.com/ayusman/nritya/internal/detector"
)

// AxisParameter is the musical parameter an axis drives.
type AxisParameter string

const (
	ParamPitch  AxisParameter = "pitch"
	ParamVolume AxisParameter = "volume"
	ParamTimbre AxisParameter = "timbre"
	ParamFilter AxisParameter = "filter"
	ParamTempo  AxisParameter = "tempo"
	ParamNone   AxisParameter = "none"
)

// Instrument names understood by the sinks.
type Instrument string

const (
	Piano   Instrument = "piano"
	Synth   Instrument = "synth"
	Strings Instrument = "strings"
	Drums   Instrument = "drums"
	Bass    Instrument = "bass"
	Pad     Instrument = "pad"
	Harp    Instrument = "harp"
)

// Role is the musical role of a body part.
type Role string

const (
	RoleMelody  Role = "melody"
	RoleHarmony Role = "harmony"
	RoleRhythm  Role = "rhythm"
	RoleBass    Role = "bass"
	RoleEffects Role = "effects"
)

// Duration returns the note length played for the role.
func (r Role) Duration() string {
	switch r {
	case RoleHarmony, RoleBass:
		return "4n"
	case RoleRhythm:
		return "16n"
	case RoleEffects:
		return "2n"
	default:
		return "8n"
	}
}

// AxisMapping binds one movement axis to a parameter.
type AxisMapping struct {
	Parameter AxisParameter `json:"parameter" yaml:"parameter"`
	Range     [2]float64    `json:"range" yaml:"range"`
	Invert    bool          `json:"invert" yaml:"invert"`
}

// BodyPartMapping configures how one body part produces notes.
type BodyPartMapping struct {
	BodyPart     detector.BodyPart `json:"bodyPart" yaml:"body_part"`
	Enabled      bool              `json:"enabled" yaml:"enabled"`
	Instrument   Instrument        `json:"instrument" yaml:"instrument"`
	Role         Role              `json:"role" yaml:"role"`
	XAxis        AxisMapping       `json:"xAxis" yaml:"x_axis"`
	YAxis        AxisMapping       `json:"yAxis" yaml:"y_axis"`
	VelocityAxis AxisMapping       `json:"velocityAxis" yaml:"velocity_axis"`
	Scale        []string          `json:"scale" yaml:"scale"`
	OctaveRange  [2]int            `json:"octaveRange" yaml:"octave_range"`
}

// MappingConfig is a named set of body-part mappings.
type MappingConfig struct {
	Name        string                                `json:"name" yaml:"name"`
	Description string                                `json:"description" yaml:"description"`
	GlobalScale []string                              `json:"globalScale" yaml:"global_scale"`
	Mappings    map[detector.BodyPart]BodyPartMapping `json:"mappings" yaml:"mappings"`
}

// ConfigurationError reports a mapping that cannot produce valid notes.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the mapping for degenerate values.
func (m BodyPartMapping) Validate() error {
	prefix := string(m.BodyPart)
	if prefix == "" {
		prefix = "mapping"
	}

	if len(m.Scale) == 0 {
		return configErr(prefix+".scale", "scale is empty")
	}
	for i, name := range m.Scale {
		if _, err := ParseNote(name); err != nil {
			return configErr(fmt.Sprintf("%s.scale[%d]", prefix, i), "%v", err)
		}
	}

	lo, hi := m.OctaveRange[0], m.OctaveRange[1]
	if lo > hi {
		return configErr(prefix+".octaveRange", "min %d greater than max %d", lo, hi)
	}
	if lo < 0 || hi > 8 {
		return configErr(prefix+".octaveRange", "[%d,%d] outside 0..8", lo, hi)
	}

	axes := []struct {
		name string
		axis AxisMapping
	}{
		{"xAxis", m.XAxis},
		{"yAxis", m.YAxis},
		{"velocityAxis", m.VelocityAxis},
	}
	for _, a := range axes {
		if err := a.axis.validate(prefix + "." + a.name); err != nil {
			return err
		}
	}
	return nil
}

func (a AxisMapping) validate(field string) error {
	switch a.Parameter {
	case ParamPitch, ParamVolume, ParamTimbre, ParamFilter, ParamTempo, ParamNone, "":
	default:
		return configErr(field+".parameter", "unknown parameter %q", a.Parameter)
	}
	if math.IsNaN(a.Range[0]) || math.IsNaN(a.Range[1]) {
		return configErr(field+".range", "range contains NaN")
	}
	if (a.Parameter == ParamPitch || a.Parameter == ParamVolume) && a.Range[0] == a.Range[1] {
		return configErr(field+".range", "degenerate range [%v,%v]", a.Range[0], a.Range[1])
	}
	return nil
}

// Validate checks every mapping and fills in missing BodyPart fields from the
// map keys.
func (c *MappingConfig) Validate() error {
	if c == nil {
		return configErr("config", "nil")
	}
	if len(c.Mappings) == 0 {
		return configErr(c.Name+".mappings", "no mappings")
	}
	for part, m := range c.Mappings {
		if len(part.RawNames()) == 0 {
			return configErr(string(part), "unknown body part")
		}
		if m.BodyPart == "" {
			m.BodyPart = part
			c.Mappings[part] = m
		}
		if len(m.Scale) == 0 && len(c.GlobalScale) > 0 {
			m.Scale = append([]string(nil), c.GlobalScale...)
			c.Mappings[part] = m
		}
		if err := c.Mappings[part].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EnabledParts returns the enabled body parts in a stable order.
func (c *MappingConfig) EnabledParts() []detector.BodyPart {
	if c == nil {
		return nil
	}
	parts := make([]detector.BodyPart, 0, len(c.Mappings))
	for part, m := range c.Mappings {
		if m.Enabled {
			parts = append(parts, part)
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i] < parts[j] })
	return parts
}

// Clone returns a deep copy of the config.
func (c *MappingConfig) Clone() *MappingConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.GlobalScale = append([]string(nil), c.GlobalScale...)
	out.Mappings = make(map[detector.BodyPart]BodyPartMapping, len(c.Mappings))
	for k, m := range c.Mappings {
		m.Scale = append([]string(nil), m.Scale...)
		out.Mappings[k] = m
	}
	return &out
}
