// Package note defines the playable events of the engine and resolves them
// to stereo samples through their per-note and per-track effect chains.
package note

import (
	"github.com/roscosynth/rosco/internal/samplefile"
	"github.com/roscosynth/rosco/internal/waveform"
)

const DefaultVolume = 1.0

// Type tags which source a PlaybackNote plays.
type Type uint8

const (
	Oscillator Type = iota
	Sample
)

func (t Type) String() string {
	if t == Sample {
		return "sample"
	}
	return "oscillator"
}

// Note is an oscillator event.
type Note struct {
	Waveforms waveform.Set
	Frequency float32
	Volume    float32
	StartMs   float32
	EndMs     float32
}

// NewNote builds a note with the given waveforms.
func NewNote(frequency, volume, startMs, endMs float32, kinds ...waveform.Kind) Note {
	return Note{
		Waveforms: waveform.NewSet(kinds...),
		Frequency: frequency,
		Volume:    volume,
		StartMs:   startMs,
		EndMs:     endMs,
	}
}

// Rest is a silent note occupying [startMs, endMs).
func Rest(startMs, endMs float32) Note {
	return Note{Frequency: 0, Volume: 0, StartMs: startMs, EndMs: endMs}
}

func (n Note) DurationMs() float32 { return n.EndMs - n.StartMs }

// SampledNote plays back a decoded buffer. The buffer is owned exclusively by
// the note; Next advances a cursor through it.
type SampledNote struct {
	Path    string
	Volume  float32
	StartMs float32
	EndMs   float32

	buf   []float32
	index int
}

// NewSampledNote takes ownership of buf.
func NewSampledNote(path string, buf []float32) *SampledNote {
	return &SampledNote{Path: path, Volume: DefaultVolume, buf: buf}
}

// LoadSampledNote decodes path into a mono buffer at sampleRate.
func LoadSampledNote(path string, sampleRate int) (*SampledNote, error) {
	buf, err := samplefile.Load(path, sampleRate)
	if err != nil {
		return nil, err
	}
	return NewSampledNote(path, buf), nil
}

func (s *SampledNote) DurationMs() float32 { return s.EndMs - s.StartMs }

// Len is the buffer size in samples.
func (s *SampledNote) Len() int { return len(s.buf) }

// Index is the cursor position.
func (s *SampledNote) Index() int { return s.index }

// Next returns the sample under the cursor and advances it. Past the end it
// returns 0 forever.
func (s *SampledNote) Next() float32 {
	if s.index >= len(s.buf) {
		return 0
	}
	v := s.buf[s.index]
	s.index++
	return v
}

// Rewind moves the cursor back to the start.
func (s *SampledNote) Rewind() { s.index = 0 }

// SampleAt reads without moving the cursor. Out of range reads are 0.
func (s *SampledNote) SampleAt(i int) float32 {
	if i < 0 || i >= len(s.buf) {
		return 0
	}
	return s.buf[i]
}

// SetBuffer replaces the buffer and rewinds.
func (s *SampledNote) SetBuffer(buf []float32) {
	s.buf = buf
	s.index = 0
}

// Append adds samples to the end of the buffer.
func (s *SampledNote) Append(samples ...float32) {
	s.buf = append(s.buf, samples...)
}

// Reverse flips the buffer in place.
func (s *SampledNote) Reverse() {
	for i, j := 0, len(s.buf)-1; i < j; i, j = i+1, j-1 {
		s.buf[i], s.buf[j] = s.buf[j], s.buf[i]
	}
}

// Clone copies the note and its buffer with the cursor rewound.
func (s *SampledNote) Clone() *SampledNote {
	c := *s
	c.buf = append([]float32(nil), s.buf...)
	c.index = 0
	return &c
}

// Chopped splits the buffer into n equal segments. Trailing samples that do
// not fill a segment are dropped.
func (s *SampledNote) Chopped(n int) []*SampledNote {
	if n <= 0 {
		return nil
	}
	size := len(s.buf) / n
	out := make([]*SampledNote, n)
	for i := range out {
		seg := make([]float32, size)
		copy(seg, s.buf[i*size:(i+1)*size])
		c := *s
		c.buf = seg
		c.index = 0
		out[i] = &c
	}
	return out
}

// Stretched returns a copy factor times longer, linearly interpolating
// between neighbouring samples. The last sample is held.
func (s *SampledNote) Stretched(factor int) *SampledNote {
	c := *s
	c.index = 0
	if factor <= 1 || len(s.buf) == 0 {
		c.buf = append([]float32(nil), s.buf...)
		return &c
	}
	out := make([]float32, 0, len(s.buf)*factor)
	for i := 0; i < len(s.buf); i++ {
		start := s.buf[i]
		end := start
		if i+1 < len(s.buf) {
			end = s.buf[i+1]
		}
		step := (end - start) / float32(factor)
		for j := 0; j < factor; j++ {
			out = append(out, start+float32(j)*step)
		}
	}
	c.buf = out
	return &c
}
