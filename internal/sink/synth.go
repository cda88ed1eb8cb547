package sink

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/sinshu/go-meltysynth/meltysynth"
	"go.uber.org/zap"

	"github.com/ayusman/nritya/internal/music"
)

// SampleRate is the synthesizer output rate.
const SampleRate = 44100

const (
	programChange = 0xC0
	drumChannel   = 9
	// pluckDuration is how long a harp string rings.
	pluckDuration = "4n"
)

// Voice is the part of a MIDI synthesizer the sink drives.
type Voice interface {
	NoteOn(channel, key, velocity int32)
	NoteOff(channel, key int32)
	ProcessMidiMessage(channel, command, data1, data2 int32)
}

type patch struct {
	channel int32
	program int32
}

// General MIDI channel and program per instrument.
var patches = map[music.Instrument]patch{
	music.Piano:   {0, 0},
	music.Synth:   {1, 81},
	music.Strings: {2, 48},
	music.Bass:    {3, 33},
	music.Pad:     {4, 89},
	music.Harp:    {5, 46},
	music.Drums:   {drumChannel, 0},
}

func patchFor(i music.Instrument) patch {
	if p, ok := patches[i]; ok {
		return p
	}
	return patches[music.Piano]
}

// Synth is a SoundFont synthesizer that renders on demand as a
// beep.Streamer.
type Synth struct {
	mu          sync.Mutex
	synth       *meltysynth.Synthesizer
	left, right []float32
}

// LoadSynth loads the SoundFont at path.
func LoadSynth(path string) (*Synth, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open soundfont: %w", err)
	}
	defer f.Close()

	sf, err := meltysynth.NewSoundFont(f)
	if err != nil {
		return nil, fmt.Errorf("parse soundfont %s: %w", path, err)
	}
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	s, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}
	return &Synth{synth: s}, nil
}

// NoteOn starts a note.
func (s *Synth) NoteOn(channel, key, velocity int32) {
	s.mu.Lock()
	s.synth.NoteOn(channel, key, velocity)
	s.mu.Unlock()
}

// NoteOff releases a note.
func (s *Synth) NoteOff(channel, key int32) {
	s.mu.Lock()
	s.synth.NoteOff(channel, key)
	s.mu.Unlock()
}

// ProcessMidiMessage forwards a raw channel message.
func (s *Synth) ProcessMidiMessage(channel, command, data1, data2 int32) {
	s.mu.Lock()
	s.synth.ProcessMidiMessage(channel, command, data1, data2)
	s.mu.Unlock()
}

// Silence releases every sounding note.
func (s *Synth) Silence() {
	s.mu.Lock()
	s.synth.NoteOffAll(true)
	s.mu.Unlock()
}

// Stream implements beep.Streamer.
func (s *Synth) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cap(s.left) < len(samples) {
		s.left = make([]float32, len(samples))
		s.right = make([]float32, len(samples))
	}
	left, right := s.left[:len(samples)], s.right[:len(samples)]
	s.synth.Render(left, right)
	for i := range samples {
		samples[i][0] = float64(left[i])
		samples[i][1] = float64(right[i])
	}
	return len(samples), true
}

// Err implements beep.Streamer.
func (s *Synth) Err() error {
	return nil
}

// Play starts streaming the synthesizer to the default audio device.
func (s *Synth) Play(latency time.Duration) error {
	sr := beep.SampleRate(SampleRate)
	if err := speaker.Init(sr, sr.N(latency)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(s)
	return nil
}

// Stop detaches the synthesizer from the audio device.
func (s *Synth) Stop() {
	speaker.Clear()
	s.Silence()
}

// SynthSink plays sounding events on a Voice. Notes are scheduled with their
// At offset and released after their symbolic duration.
type SynthSink struct {
	voice Voice
	bpm   int
	log   *zap.Logger

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	struck map[voiceKey]uint64
	closed bool
}

// voiceKey identifies a sounding key. Its generation counts note-ons so a
// note-off from an earlier strike does not cut a later one short.
type voiceKey struct {
	channel, key int32
}

// NewSynthSink creates a sink driving voice at bpm (0 means music.DefaultBPM)
// and selects the instrument programs.
func NewSynthSink(voice Voice, bpm int, log *zap.Logger) *SynthSink {
	if bpm <= 0 {
		bpm = music.DefaultBPM
	}
	if log == nil {
		log = zap.NewNop()
	}
	for _, p := range patches {
		if p.channel == drumChannel {
			continue
		}
		voice.ProcessMidiMessage(p.channel, programChange, p.program, 0)
	}
	return &SynthSink{
		voice:  voice,
		bpm:    bpm,
		log:    log,
		timers: make(map[*time.Timer]struct{}),
		struck: make(map[voiceKey]uint64),
	}
}

// SetTempo changes the tempo used to resolve note durations.
func (s *SynthSink) SetTempo(bpm int) {
	if bpm <= 0 {
		return
	}
	s.mu.Lock()
	s.bpm = bpm
	s.mu.Unlock()
}

// Emit plays e. Gestures are ignored.
func (s *SynthSink) Emit(_ context.Context, e Event) error {
	switch e.Kind {
	case KindNote:
		return s.play(e.Note.Pitch, e.Note.Duration, e.Note.Velocity, e.Note.Instrument, e.Note.At)
	case KindChord:
		for _, n := range e.Chord.Notes {
			if err := s.play(n, e.Chord.Duration, e.Chord.Velocity, e.Chord.Instrument, 0); err != nil {
				return err
			}
		}
	case KindPluck:
		return s.play(e.Pluck.Note, pluckDuration, e.Pluck.Velocity, music.Harp, e.Pluck.At)
	}
	return nil
}

func (s *SynthSink) play(pitch, duration string, velocity float64, inst music.Instrument, at time.Duration) error {
	key, err := music.NoteToMIDI(pitch)
	if err != nil {
		return err
	}
	s.mu.Lock()
	bpm := s.bpm
	s.mu.Unlock()
	length, err := music.ParseDuration(duration, bpm)
	if err != nil {
		return err
	}

	p := patchFor(inst)
	k, vel := int32(key), midiVelocity(velocity)

	vk := voiceKey{p.channel, k}
	var gen uint64
	on := func() {
		s.mu.Lock()
		s.struck[vk]++
		gen = s.struck[vk]
		s.mu.Unlock()
		s.voice.NoteOn(p.channel, k, vel)
	}
	off := func() {
		s.mu.Lock()
		current := s.struck[vk] == gen
		s.mu.Unlock()
		if current {
			s.voice.NoteOff(p.channel, k)
		}
	}

	if at <= 0 {
		on()
	} else {
		s.after(at, on)
	}
	s.after(at+length, off)
	return nil
}

func (s *SynthSink) after(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[t]
		delete(s.timers, t)
		s.mu.Unlock()
		if live {
			f()
		}
	})
	s.timers[t] = struct{}{}
}

// Pending returns the number of scheduled note-on and note-off calls.
func (s *SynthSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close cancels every scheduled note.
func (s *SynthSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for t := range s.timers {
		t.Stop()
	}
	clear(s.timers)
	return nil
}

// midiVelocity maps [0,1] to MIDI velocity 1..127.
func midiVelocity(v float64) int32 {
	vel := int32(v*127 + 0.5)
	return max(1, min(127, vel))
}
