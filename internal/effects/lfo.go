package effects

import (
	"fmt"

	"github.com/roscosynth/rosco/internal/waveform"
)

// LFO scales the input by 1 + Amplitude * (sum of its waveforms at
// Frequency). It holds no state besides its settings.
type LFO struct {
	tables    *waveform.Tables
	Frequency float32
	Amplitude float32
	Waveforms waveform.Set
}

// NewLFO builds an LFO reading from tables.
func NewLFO(tables *waveform.Tables, frequency, amplitude float32, waveforms waveform.Set) (*LFO, error) {
	if tables == nil {
		return nil, fmt.Errorf("%w: lfo needs waveform tables", ErrInvalidConfig)
	}
	if frequency <= 0 {
		return nil, fmt.Errorf("%w: lfo frequency %g must be positive", ErrInvalidConfig, frequency)
	}
	if waveforms.Len() == 0 {
		return nil, fmt.Errorf("%w: lfo needs at least one waveform", ErrInvalidConfig)
	}
	return &LFO{tables: tables, Frequency: frequency, Amplitude: amplitude, Waveforms: waveforms}, nil
}

// Apply modulates sample at the absolute sampleCount.
func (l *LFO) Apply(sample float32, sampleCount uint64) float32 {
	if l.Amplitude == 0 {
		return sample
	}
	return sample * (1 + l.Amplitude*l.tables.SampleSet(l.Waveforms, l.Frequency, sampleCount))
}
