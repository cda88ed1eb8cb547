// Package chord advances an ambient chord progression from sustained body
// movement.
package chord

import "github.com/ayusman/nritya/internal/music"

// Entry is one chord of a progression.
type Entry struct {
	Name       string   `json:"name"`
	Mood       string   `json:"mood"`
	Root       string   `json:"root"`
	ChordTones []string `json:"chordTones"`
	Pad        []string `json:"pad"`
	Bass       []string `json:"bass"`
}

// Ambient is the default progression: I vi IV V ii iii IV I in C with open
// pad voicings.
var Ambient = []Entry{
	{Name: "Cmaj7", Mood: "calm", Root: "C", ChordTones: []string{"C", "E", "G", "B"}, Pad: []string{"C4", "G4", "B4", "E5"}, Bass: []string{"C2", "G2"}},
	{Name: "Am9", Mood: "tender", Root: "A", ChordTones: []string{"A", "C", "E", "G", "B"}, Pad: []string{"A3", "E4", "G4", "B4", "C5"}, Bass: []string{"A1", "E2"}},
	{Name: "Fmaj9", Mood: "warm", Root: "F", ChordTones: []string{"F", "A", "C", "E", "G"}, Pad: []string{"F3", "C4", "E4", "G4", "A4"}, Bass: []string{"F1", "C2"}},
	{Name: "Gsus4", Mood: "hopeful", Root: "G", ChordTones: []string{"G", "C", "D"}, Pad: []string{"G3", "C4", "D4", "G4"}, Bass: []string{"G1", "D2"}},
	{Name: "Dm7", Mood: "wistful", Root: "D", ChordTones: []string{"D", "F", "A", "C"}, Pad: []string{"D4", "A4", "C5", "F5"}, Bass: []string{"D2", "A2"}},
	{Name: "Em7", Mood: "dreamy", Root: "E", ChordTones: []string{"E", "G", "B", "D"}, Pad: []string{"E4", "B4", "D5", "G5"}, Bass: []string{"E2", "B2"}},
	{Name: "Fadd9", Mood: "open", Root: "F", ChordTones: []string{"F", "A", "C", "G"}, Pad: []string{"F3", "G3", "C4", "A4"}, Bass: []string{"F1", "C2"}},
	{Name: "C/G", Mood: "resolved", Root: "C", ChordTones: []string{"C", "E", "G"}, Pad: []string{"G3", "C4", "E4", "G4"}, Bass: []string{"G1", "C2"}},
}

// PadEvent returns the pad voicing of the entry as a chord event.
func (e Entry) PadEvent(velocity float64) music.ChordEvent {
	return music.ChordEvent{
		Name:       e.Name,
		Notes:      append([]string(nil), e.Pad...),
		Duration:   "1m",
		Velocity:   velocity,
		Instrument: music.Pad,
	}
}

// BassEvent returns the bass voicing of the entry as a chord event.
func (e Entry) BassEvent(velocity float64) music.ChordEvent {
	return music.ChordEvent{
		Name:       e.Name,
		Notes:      append([]string(nil), e.Bass...),
		Duration:   "2n",
		Velocity:   velocity,
		Instrument: music.Bass,
	}
}
