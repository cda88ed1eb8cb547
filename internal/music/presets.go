package music

import (
	"fmt"
	"sort"

	"github.com/ayusman/nritya/internal/detector"
)

// Scales available to mappings, keyed by name.
var Scales = map[string][]string{
	"pentatonic": {"C", "D", "E", "G", "A"},
	"major":      {"C", "D", "E", "F", "G", "A", "B"},
	"minor":      {"C", "D", "Eb", "F", "G", "Ab", "Bb"},
	"blues":      {"C", "Eb", "F", "Gb", "G", "Bb"},
	"chromatic":  {"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"},
	"japanese":   {"C", "D", "Eb", "G", "Ab"},
	"arabian":    {"C", "D", "E", "F", "G", "Ab", "B"},
}

// Scale returns a copy of the named scale.
func Scale(name string) ([]string, bool) {
	s, ok := Scales[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), s...), true
}

// ScaleNames returns the scale names sorted.
func ScaleNames() []string {
	names := make([]string, 0, len(Scales))
	for name := range Scales {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func axis(p AxisParameter, lo, hi float64, invert bool) AxisMapping {
	return AxisMapping{Parameter: p, Range: [2]float64{lo, hi}, Invert: invert}
}

var noAxis = axis(ParamNone, 0, 1, false)

// Presets returns fresh copies of the built-in mapping configs keyed by id.
func Presets() map[string]*MappingConfig {
	pentatonic := Scales["pentatonic"]
	major := Scales["major"]

	drum := func(part detector.BodyPart) BodyPartMapping {
		return BodyPartMapping{
			BodyPart:     part,
			Enabled:      true,
			Instrument:   Drums,
			Role:         RoleRhythm,
			XAxis:        noAxis,
			YAxis:        axis(ParamPitch, 0, 4, true),
			VelocityAxis: axis(ParamVolume, 0.3, 0.9, false),
			Scale:        []string{"C"},
			OctaveRange:  [2]int{2, 4},
		}
	}

	return map[string]*MappingConfig{
		"intuitive": {
			Name:        "Intuitive",
			Description: "Natural mapping with hands up = higher pitch",
			GlobalScale: append([]string(nil), pentatonic...),
			Mappings: map[detector.BodyPart]BodyPartMapping{
				detector.RightWrist: {
					BodyPart:     detector.RightWrist,
					Enabled:      true,
					Instrument:   Piano,
					Role:         RoleMelody,
					XAxis:        noAxis,
					YAxis:        axis(ParamPitch, 0, 1, true),
					VelocityAxis: axis(ParamVolume, 0.1, 0.8, false),
					Scale:        append([]string(nil), pentatonic...),
					OctaveRange:  [2]int{3, 6},
				},
				detector.LeftWrist: {
					BodyPart:     detector.LeftWrist,
					Enabled:      true,
					Instrument:   Synth,
					Role:         RoleHarmony,
					XAxis:        axis(ParamFilter, 200, 2000, false),
					YAxis:        axis(ParamPitch, 0, 1, true),
					VelocityAxis: axis(ParamVolume, 0.1, 0.6, false),
					Scale:        []string{"C", "E", "G"},
					OctaveRange:  [2]int{2, 4},
				},
			},
		},
		"experimental": {
			Name:        "Experimental",
			Description: "X controls pitch, Y controls volume",
			GlobalScale: append([]string(nil), major...),
			Mappings: map[detector.BodyPart]BodyPartMapping{
				detector.RightWrist: {
					BodyPart:     detector.RightWrist,
					Enabled:      true,
					Instrument:   Synth,
					Role:         RoleMelody,
					XAxis:        axis(ParamPitch, 0, 1, false),
					YAxis:        axis(ParamVolume, 0.1, 0.9, true),
					VelocityAxis: axis(ParamTimbre, 0, 1, false),
					Scale:        append([]string(nil), major...),
					OctaveRange:  [2]int{4, 6},
				},
			},
		},
		"drummer": {
			Name:        "Drummer",
			Description: "Different heights trigger different drums",
			GlobalScale: []string{"C"},
			Mappings: map[detector.BodyPart]BodyPartMapping{
				detector.RightWrist: drum(detector.RightWrist),
				detector.LeftWrist:  drum(detector.LeftWrist),
			},
		},
	}
}

// Preset returns a copy of the named built-in preset.
func Preset(id string) (*MappingConfig, error) {
	cfg, ok := Presets()[id]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", id)
	}
	return cfg, nil
}

// PresetIDs returns the built-in preset ids sorted.
func PresetIDs() []string {
	return []string{"drummer", "experimental", "intuitive"}
}
