// Package scale maps Western pitch names to equal-tempered frequencies and
// builds just-intonation scales from a root.
package scale

import (
	"fmt"
	"math"
	"strings"
)

// Pitch is a Western pitch class, enharmonic spellings included.
type Pitch uint8

const (
	C Pitch = iota
	CSharp
	DFlat
	D
	DSharp
	EFlat
	E
	F
	FSharp
	GFlat
	G
	GSharp
	AFlat
	A
	ASharp
	BFlat
	B
)

var pitchNames = [...]string{"C", "C#", "Db", "D", "D#", "Eb", "E", "F", "F#", "Gb", "G", "G#", "Ab", "A", "A#", "Bb", "B"}

var pitchIndex = [...]int{0, 1, 1, 2, 3, 3, 4, 5, 6, 6, 7, 8, 8, 9, 10, 10, 11}

// Chromatic lists the twelve pitch classes spelled with sharps.
var Chromatic = [12]Pitch{C, CSharp, D, DSharp, E, F, FSharp, G, GSharp, A, ASharp, B}

// MaxOctave is the highest octave Frequency accepts.
const MaxOctave = 8

func (p Pitch) String() string {
	if int(p) < len(pitchNames) {
		return pitchNames[p]
	}
	return fmt.Sprintf("Pitch(%d)", uint8(p))
}

// Index is the semitone offset from C.
func (p Pitch) Index() int {
	if int(p) < len(pitchIndex) {
		return pitchIndex[p]
	}
	return 0
}

// Frequency returns the equal-tempered frequency of p in octave, with A4 at
// 440Hz. Octaves outside [0, MaxOctave] are clamped.
func (p Pitch) Frequency(octave int) float32 {
	if octave < 0 {
		octave = 0
	} else if octave > MaxOctave {
		octave = MaxOctave
	}
	return MidiFrequency(octave*12 + p.Index())
}

// MidiFrequency converts a semitone number counted from C0 to Hz.
func MidiFrequency(semitone int) float32 {
	return float32(440 * math.Pow(2, float64(semitone-57)/12))
}

// Next steps one semitone up through the chromatic ring.
func (p Pitch) Next() Pitch {
	return Chromatic[(p.Index()+1)%12]
}

// Previous steps one semitone down through the chromatic ring.
func (p Pitch) Previous() Pitch {
	return Chromatic[(p.Index()+11)%12]
}

// ParsePitch reads a name such as "C", "f#" or "Bb".
func ParsePitch(s string) (Pitch, error) {
	s = strings.TrimSpace(s)
	for i, name := range pitchNames {
		if strings.EqualFold(name, s) && (len(s) < 2 || s[1:] == name[1:]) {
			return Pitch(i), nil
		}
	}
	return C, fmt.Errorf("unknown pitch %q", s)
}

// Kind selects a scale shape.
type Kind uint8

const (
	Major Kind = iota
	Minor
	Pentatonic
	Blues
	ChromaticScale
)

func (k Kind) String() string {
	switch k {
	case Major:
		return "major"
	case Minor:
		return "minor"
	case Pentatonic:
		return "pentatonic"
	case Blues:
		return "blues"
	case ChromaticScale:
		return "chromatic"
	}
	return "unknown"
}

var ratios = map[Kind][]float64{
	Major:      {1, 9.0 / 8, 5.0 / 4, 4.0 / 3, 3.0 / 2, 5.0 / 3, 15.0 / 8},
	Minor:      {1, 9.0 / 8, 6.0 / 5, 4.0 / 3, 3.0 / 2, 8.0 / 5, 9.0 / 5},
	Pentatonic: {1, 9.0 / 8, 6.0 / 5, 4.0 / 3, 3.0 / 2},
	Blues:      {1, 7.0 / 6, 6.0 / 5, 7.0 / 5, 9.0 / 5},
}

// Frequencies builds the scale on root (Hz).
func (k Kind) Frequencies(root float32) []float32 {
	if k == ChromaticScale {
		out := make([]float32, 12)
		for i := range out {
			out[i] = root * float32(math.Pow(2, float64(i)/12))
		}
		return out
	}
	r := ratios[k]
	out := make([]float32, len(r))
	for i, ratio := range r {
		out[i] = float32(float64(root) * ratio)
	}
	return out
}
