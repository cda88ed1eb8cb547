// Package harp models a 47-string pedal harp: string table, pedal positions,
// string layout and string-crossing detection.
package harp

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/nritya/internal/music"
)

// NumStrings is the number of strings on a concert harp.
const NumStrings = 47

// ErrInvalidString is returned for string names outside the harp table.
var ErrInvalidString = errors.New("invalid harp string")

var letters = [7]string{"C", "D", "E", "F", "G", "A", "B"}

// Strings is the base (natural) name of every string, lowest first: C1..G7.
var Strings = func() [NumStrings]string {
	var s [NumStrings]string
	for i := range s {
		s[i] = letters[i%7] + strconv.Itoa(1+i/7)
	}
	return s
}()

// Pedal is the position of one pedal.
type Pedal string

const (
	Flat    Pedal = "flat"
	Natural Pedal = "natural"
	Sharp   Pedal = "sharp"
)

// Semitone returns the transposition applied by the pedal.
func (p Pedal) Semitone() int {
	switch p {
	case Flat:
		return -1
	case Sharp:
		return 1
	default:
		return 0
	}
}

// Modifier returns the accidental written for the pedal.
func (p Pedal) Modifier() string {
	switch p {
	case Flat:
		return "b"
	case Sharp:
		return "#"
	default:
		return ""
	}
}

// Next cycles flat -> natural -> sharp -> flat.
func (p Pedal) Next() Pedal {
	switch p {
	case Flat:
		return Natural
	case Natural:
		return Sharp
	default:
		return Flat
	}
}

// Valid reports whether p is one of the three positions.
func (p Pedal) Valid() bool {
	return p == Flat || p == Natural || p == Sharp
}

// PedalOrder is the physical pedal arrangement, left foot then right.
var PedalOrder = [7]string{"D", "C", "B", "E", "F", "G", "A"}

// Pedals maps a note letter to its pedal position. Missing letters are natural.
type Pedals map[string]Pedal

// Position returns the pedal for letter.
func (p Pedals) Position(letter string) Pedal {
	if pos, ok := p[letter]; ok && pos.Valid() {
		return pos
	}
	return Natural
}

// Validate rejects unknown letters and positions.
func (p Pedals) Validate() error {
	for letter, pos := range p {
		if !isLetter(letter) {
			return fmt.Errorf("pedal %q: unknown letter", letter)
		}
		if !pos.Valid() {
			return fmt.Errorf("pedal %s: unknown position %q", letter, pos)
		}
	}
	return nil
}

func isLetter(s string) bool {
	for _, l := range letters {
		if s == l {
			return true
		}
	}
	return false
}

// Clone returns a copy with every letter set explicitly.
func (p Pedals) Clone() Pedals {
	out := make(Pedals, len(letters))
	for _, l := range letters {
		out[l] = p.Position(l)
	}
	return out
}

// ParseString parses a harp string or actual note such as "C4" or "F#3".
func ParseString(s string) (music.Note, error) {
	n, err := music.ParseNote(s)
	if err != nil || !n.HasOctave {
		return music.Note{}, fmt.Errorf("%w: %q", ErrInvalidString, s)
	}
	if n.Octave < 1 || n.Octave > 7 {
		return music.Note{}, fmt.Errorf("%w: %q out of range", ErrInvalidString, s)
	}
	return n, nil
}

// ActualNote applies the pedal for the string's letter to a natural base
// string name, e.g. "F4" with F sharp gives "F#4".
func ActualNote(base string, pedals Pedals) (string, error) {
	n, err := ParseString(base)
	if err != nil {
		return "", err
	}
	if n.Modifier != "" {
		return "", fmt.Errorf("%w: %q is not a natural string", ErrInvalidString, base)
	}
	n.Modifier = pedals.Position(string(n.Letter)).Modifier()
	return n.String(), nil
}

// StringNote resolves string index i to its sounding note.
func StringNote(i int, pedals Pedals) (string, error) {
	if i < 0 || i >= NumStrings {
		return "", fmt.Errorf("%w: index %d", ErrInvalidString, i)
	}
	return ActualNote(Strings[i], pedals)
}

// ScaleNotes returns the sounding note of every string, lowest first.
func ScaleNotes(pedals Pedals) []string {
	out := make([]string, NumStrings)
	for i, base := range Strings {
		out[i], _ = ActualNote(base, pedals)
	}
	return out
}

// StringColor returns the display colour of a string: C strings are red and
// F strings navy, as on a real harp.
func StringColor(base string) string {
	if base == "" {
		return "#ffffff"
	}
	switch base[0] {
	case 'C':
		return "#ff0000"
	case 'F':
		return "#000080"
	default:
		return "#ffffff"
	}
}
