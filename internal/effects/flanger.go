package effects

import (
	"fmt"
	"math"
)

// Flanger mixes the input with a tap from a short history whose offset sweeps
// with the sample position.
type Flanger struct {
	windowSize    int
	mix           float32
	mixComplement float32
	buf           []float32
	pos           int
	filled        int
}

// NewFlanger builds a flanger sweeping between 1 and windowSize samples.
func NewFlanger(windowSize int, mix float32) (*Flanger, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("%w: flanger window %d must be at least 1", ErrInvalidConfig, windowSize)
	}
	if mix < 0 || mix > 1 {
		return nil, fmt.Errorf("%w: flanger mix %g outside [0,1]", ErrInvalidConfig, mix)
	}
	return &Flanger{
		windowSize:    windowSize,
		mix:           mix,
		mixComplement: 1 - mix,
		buf:           make([]float32, windowSize+1),
	}, nil
}

// TapOffset is the delay in samples used at samplePosition.
func (f *Flanger) TapOffset(samplePosition float32) int {
	sweep := 0.5 + 0.5*math.Sin(2*math.Pi*float64(samplePosition))
	return 1 + int(math.Round(float64(f.windowSize-1)*sweep))
}

// Apply records sample and returns it mixed with the swept tap. Taps that
// reach past the recorded history read as silence.
func (f *Flanger) Apply(sample, samplePosition float32) float32 {
	f.buf[f.pos] = sample
	if f.filled < len(f.buf) {
		f.filled++
	}
	var tap float32
	if off := f.TapOffset(samplePosition); off < f.filled {
		i := f.pos - off
		if i < 0 {
			i += len(f.buf)
		}
		tap = f.buf[i]
	}
	f.pos++
	if f.pos == len(f.buf) {
		f.pos = 0
	}
	return sample*f.mixComplement + tap*f.mix
}

func (f *Flanger) Reset() {
	clear(f.buf)
	f.pos = 0
	f.filled = 0
}

// Clone returns a flanger with the same settings and empty history.
func (f *Flanger) Clone() *Flanger {
	c, _ := NewFlanger(f.windowSize, f.mix)
	return c
}
