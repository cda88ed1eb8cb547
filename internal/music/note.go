// Package music maps body keypoints onto notes drawn from a configured scale.
package music

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidNote is returned for note names that do not parse.
var ErrInvalidNote = errors.New("invalid note")

// letterSemitones is the semitone offset of each natural letter from C.
var letterSemitones = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// Note is a pitch in scientific notation, e.g. C#4. HasOctave is false for a
// bare pitch class such as "Eb".
type Note struct {
	Letter    byte
	Modifier  string // "", "#" or "b"
	Octave    int
	HasOctave bool
}

// ParseNote parses "C", "Eb", "F#3" or "A4". The letter is case-insensitive.
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Note{}, fmt.Errorf("%w: empty", ErrInvalidNote)
	}

	n := Note{Letter: upper(s[0])}
	if _, ok := letterSemitones[n.Letter]; !ok {
		return Note{}, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}

	rest := s[1:]
	if len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		n.Modifier = rest[:1]
		rest = rest[1:]
	}

	if rest != "" {
		oct, err := strconv.Atoi(rest)
		if err != nil || oct < -1 || oct > 9 {
			return Note{}, fmt.Errorf("%w: %q", ErrInvalidNote, s)
		}
		n.Octave = oct
		n.HasOctave = true
	}
	return n, nil
}

// PitchClass returns the note without its octave, e.g. "C#".
func (n Note) PitchClass() string {
	return string(n.Letter) + n.Modifier
}

// String formats the note; the octave is omitted when not set.
func (n Note) String() string {
	if !n.HasOctave {
		return n.PitchClass()
	}
	return n.PitchClass() + strconv.Itoa(n.Octave)
}

// WithOctave returns a copy of the note in the given octave.
func (n Note) WithOctave(octave int) Note {
	n.Octave = octave
	n.HasOctave = true
	return n
}

// MIDI returns the MIDI note number with C4 = 60. A missing octave counts as
// octave 4.
func (n Note) MIDI() int {
	octave := n.Octave
	if !n.HasOctave {
		octave = 4
	}
	semi := letterSemitones[n.Letter]
	switch n.Modifier {
	case "#":
		semi++
	case "b":
		semi--
	}
	return (octave+1)*12 + semi
}

// NoteToMIDI parses a note name and returns its MIDI number.
func NoteToMIDI(name string) (int, error) {
	n, err := ParseNote(name)
	if err != nil {
		return 0, err
	}
	return n.MIDI(), nil
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
