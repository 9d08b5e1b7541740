// Package sequence turns fixed-time step tracks into scheduled PlaybackNotes
// and holds the tempo arithmetic shared with the real-time driver.
package sequence

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roscosynth/rosco/internal/note"
	"github.com/roscosynth/rosco/internal/waveform"
)

var ErrInvalidTrack = errors.New("invalid track")

// DurationType is the note value one step occupies.
type DurationType uint8

const (
	Whole DurationType = iota
	Half
	Quarter
	Eighth
	Sixteenth
	ThirtySecond
)

var durationNames = [...]string{"whole", "half", "quarter", "eighth", "sixteenth", "thirtysecond"}

func (d DurationType) String() string {
	if int(d) < len(durationNames) {
		return durationNames[d]
	}
	return "unknown"
}

// Factor is the length of d in beats.
func (d DurationType) Factor() float32 {
	switch d {
	case Whole:
		return 4
	case Half:
		return 2
	case Quarter:
		return 1
	case Eighth:
		return 0.5
	case Sixteenth:
		return 0.25
	case ThirtySecond:
		return 0.125
	}
	return 1
}

// ParseDuration reads a duration name, case-insensitively.
func ParseDuration(s string) (DurationType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range durationNames {
		if s == name {
			return DurationType(i), nil
		}
	}
	return Quarter, fmt.Errorf("unknown duration %q", s)
}

// StepDurationMs is the length of one step of d at tempo BPM.
func StepDurationMs(tempo float32, d DurationType) float32 {
	if tempo <= 0 {
		return 0
	}
	return 60000 / tempo * d.Factor()
}

// SamplesForMs converts milliseconds to a whole sample count.
func SamplesForMs(ms float32, sampleRate int) uint64 {
	if ms <= 0 {
		return 0
	}
	return uint64(math.Round(float64(ms) * float64(sampleRate) / 1000))
}

// SamplesPerBeat is sampleRate*60/tempo, never below one sample.
func SamplesPerBeat(tempo float32, sampleRate int) uint64 {
	if tempo <= 0 {
		return math.MaxUint64
	}
	n := uint64(float64(sampleRate) * 60 / float64(tempo))
	if n == 0 {
		n = 1
	}
	return n
}

// Step is one declared note at a step index.
type Step struct {
	Index     int
	Type      note.Type
	Waveforms waveform.Set
	Frequency float32
	Volume    float32
	// Sample is copied per occurrence so each note has its own cursor.
	Sample *note.SampledNote
}

// Track is a fixed-time step sequence with its shared effects.
type Track struct {
	Name     string
	Effects  *note.TrackEffects
	Duration DurationType
	Tempo    float32
	NumSteps int
	Steps    []Step
}

// NewTrack creates an empty track with no effects.
func NewTrack(name string, tempo float32, d DurationType, numSteps int) *Track {
	return &Track{
		Name:     name,
		Effects:  note.NoOpTrackEffects(),
		Duration: d,
		Tempo:    tempo,
		NumSteps: numSteps,
	}
}

// AddOscillator appends an oscillator step.
func (t *Track) AddOscillator(index int, frequency, volume float32, kinds ...waveform.Kind) {
	t.Steps = append(t.Steps, Step{
		Index:     index,
		Type:      note.Oscillator,
		Waveforms: waveform.NewSet(kinds...),
		Frequency: frequency,
		Volume:    volume,
	})
}

// AddSample appends a sample step.
func (t *Track) AddSample(index int, s *note.SampledNote, volume float32) {
	t.Steps = append(t.Steps, Step{Index: index, Type: note.Sample, Sample: s, Volume: volume})
}

// StepDurationMs is the length of one step of this track.
func (t *Track) StepDurationMs() float32 { return StepDurationMs(t.Tempo, t.Duration) }

// DurationMs is the length of the whole track.
func (t *Track) DurationMs() float32 { return t.StepDurationMs() * float32(t.NumSteps) }

func (t *Track) validate() error {
	if t.Tempo <= 0 {
		return fmt.Errorf("%w: %q tempo %g", ErrInvalidTrack, t.Name, t.Tempo)
	}
	if t.NumSteps <= 0 {
		return fmt.Errorf("%w: %q has %d steps", ErrInvalidTrack, t.Name, t.NumSteps)
	}
	for _, s := range t.Steps {
		if s.Index < 0 || s.Index >= t.NumSteps {
			return fmt.Errorf("%w: %q step %d outside [0,%d)", ErrInvalidTrack, t.Name, s.Index, t.NumSteps)
		}
		if s.Type == note.Oscillator && s.Waveforms.Len() > 0 && s.Frequency <= 0 {
			return fmt.Errorf("%w: %q step %d frequency %g", ErrInvalidTrack, t.Name, s.Index, s.Frequency)
		}
		if s.Type == note.Sample && s.Sample == nil {
			return fmt.Errorf("%w: %q step %d has no sample", ErrInvalidTrack, t.Name, s.Index)
		}
	}
	return nil
}

// Notes schedules every step as a PlaybackNote sharing the track's effects.
func (t *Track) Notes(sampleRate int) ([]*note.PlaybackNote, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	stepMs := t.StepDurationMs()
	out := make([]*note.PlaybackNote, 0, len(t.Steps))
	for _, s := range t.Steps {
		start := float32(s.Index) * stepMs
		end := start + stepMs
		var p *note.PlaybackNote
		switch s.Type {
		case note.Sample:
			sn := s.Sample.Clone()
			sn.Volume = s.Volume
			sn.StartMs, sn.EndMs = start, end
			p = note.FromSampled(sn, sampleRate)
		default:
			n := note.Note{Waveforms: s.Waveforms, Frequency: s.Frequency, Volume: s.Volume, StartMs: start, EndMs: end}
			p = note.FromNote(n, sampleRate)
		}
		p.Track = t.Effects
		out = append(out, p)
	}
	return out, nil
}

// Sequence is a set of tracks played together.
type Sequence struct {
	Tracks []*Track
}

// Notes schedules every track.
func (s *Sequence) Notes(sampleRate int) ([]*note.PlaybackNote, error) {
	var out []*note.PlaybackNote
	for _, t := range s.Tracks {
		notes, err := t.Notes(sampleRate)
		if err != nil {
			return nil, err
		}
		out = append(out, notes...)
	}
	return out, nil
}

// DurationMs is the length of the longest track.
func (s *Sequence) DurationMs() float32 {
	var longest float32
	for _, t := range s.Tracks {
		if d := t.DurationMs(); d > longest {
			longest = d
		}
	}
	return longest
}

// Reset clears the history of every track's effects.
func (s *Sequence) Reset() {
	for _, t := range s.Tracks {
		if t.Effects != nil {
			t.Effects.Reset()
		}
	}
}
