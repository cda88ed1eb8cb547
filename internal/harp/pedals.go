package harp

import "fmt"

func preset(d, c, b, e, f, g, a Pedal) Pedals {
	return Pedals{"D": d, "C": c, "B": b, "E": e, "F": f, "G": g, "A": a}
}

var pedalPresets = map[string]Pedals{
	"C Major":    preset(Natural, Natural, Natural, Natural, Natural, Natural, Natural),
	"G Major":    preset(Natural, Natural, Natural, Natural, Sharp, Natural, Natural),
	"D Major":    preset(Natural, Sharp, Natural, Natural, Sharp, Natural, Natural),
	"A Major":    preset(Natural, Sharp, Natural, Natural, Sharp, Sharp, Natural),
	"E Major":    preset(Sharp, Sharp, Natural, Natural, Sharp, Sharp, Natural),
	"B Major":    preset(Sharp, Sharp, Natural, Natural, Sharp, Sharp, Sharp),
	"F Major":    preset(Natural, Natural, Flat, Natural, Natural, Natural, Natural),
	"Bb Major":   preset(Natural, Natural, Flat, Flat, Natural, Natural, Natural),
	"Eb Major":   preset(Natural, Natural, Flat, Flat, Natural, Natural, Flat),
	"Ab Major":   preset(Flat, Natural, Flat, Flat, Natural, Natural, Flat),
	"Db Major":   preset(Flat, Natural, Flat, Flat, Natural, Flat, Flat),
	"Gb Major":   preset(Flat, Flat, Flat, Flat, Natural, Flat, Flat),
	"Whole Tone": preset(Natural, Natural, Flat, Natural, Sharp, Sharp, Flat),
	"Pentatonic": preset(Natural, Natural, Flat, Natural, Sharp, Natural, Natural),
}

// PresetNames lists the built-in pedal presets in display order.
var PresetNames = []string{
	"C Major", "G Major", "D Major", "A Major", "E Major", "B Major",
	"F Major", "Bb Major", "Eb Major", "Ab Major", "Db Major", "Gb Major",
	"Whole Tone", "Pentatonic",
}

// DefaultPreset is the pedal setting a new session starts with.
const DefaultPreset = "C Major"

// Preset returns a copy of the named pedal preset.
func Preset(name string) (Pedals, error) {
	p, ok := pedalPresets[name]
	if !ok {
		return nil, fmt.Errorf("unknown pedal preset %q", name)
	}
	return p.Clone(), nil
}
