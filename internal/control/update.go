// Package control carries parameter edits from UI goroutines to the shared
// audio state. Edits are values of the closed Update sum; a Worker drains a
// bounded Queue and applies each one with atomic stores.
package control

import (
	"fmt"
	"math"

	"github.com/roscosynth/rosco/internal/effects"
	"github.com/roscosynth/rosco/internal/state"
	"github.com/roscosynth/rosco/internal/waveform"
)

// Update is one parameter edit. The set of implementations is closed.
type Update interface {
	update()
}

type (
	OscillatorFrequency struct{ Hz float32 }
	OscillatorVolume    struct{ Volume float32 }
	OscillatorWaveform  struct{ Kind waveform.Kind }

	FilterCutoff    struct{ Hz float32 }
	FilterResonance struct{ Resonance float32 }

	EnvelopeAttack  struct{ Value float32 }
	EnvelopeDecay   struct{ Value float32 }
	EnvelopeSustain struct{ Value float32 }
	EnvelopeRelease struct{ Value float32 }

	StepToggle struct {
		Track, Step int
		Enabled     bool
	}
	StepFrequency struct {
		Track, Step int
		Hz          float32
	}
	TrackVolume struct {
		Track  int
		Volume float32
	}
	TrackPan struct {
		Track int
		Pan   float32
	}

	TransportPlay   struct{}
	TransportStop   struct{}
	TransportRewind struct{}
	TempoChange     struct{ BPM float32 }

	MasterEQ struct {
		Band int
		Gain float32
	}
)

func (OscillatorFrequency) update() {}
func (OscillatorVolume) update()    {}
func (OscillatorWaveform) update()  {}
func (FilterCutoff) update()        {}
func (FilterResonance) update()     {}
func (EnvelopeAttack) update()      {}
func (EnvelopeDecay) update()       {}
func (EnvelopeSustain) update()     {}
func (EnvelopeRelease) update()     {}
func (StepToggle) update()          {}
func (StepFrequency) update()       {}
func (TrackVolume) update()         {}
func (TrackPan) update()            {}
func (TransportPlay) update()       {}
func (TransportStop) update()       {}
func (TransportRewind) update()     {}
func (TempoChange) update()         {}
func (MasterEQ) update()            {}

// Apply stores u into s, and into eq for MasterEQ. eq may be nil. Updates
// addressing a track, step or band outside the grid, carrying a NaN or
// infinite value, or a value outside its range return an error and change
// nothing. Volumes and sustain lie in [0,1]; frequencies, cutoff and tempo
// are positive; resonance and envelope durations are non-negative.
func Apply(u Update, s *state.AudioState, eq *effects.EQ5Band) error {
	switch u := u.(type) {
	case OscillatorFrequency:
		if !positive(u.Hz) {
			return fmt.Errorf("oscillator frequency %g must be positive", u.Hz)
		}
		s.SetOscFrequency(u.Hz)
	case OscillatorVolume:
		if !unit(u.Volume) {
			return fmt.Errorf("oscillator volume %g outside [0,1]", u.Volume)
		}
		s.SetOscVolume(u.Volume)
	case OscillatorWaveform:
		if u.Kind > waveform.GaussianNoise {
			return fmt.Errorf("unknown waveform %d", u.Kind)
		}
		s.SetOscWaveform(u.Kind)
	case FilterCutoff:
		if !positive(u.Hz) {
			return fmt.Errorf("filter cutoff %g must be positive", u.Hz)
		}
		s.SetFilterCutoff(u.Hz)
	case FilterResonance:
		if !nonNegative(u.Resonance) {
			return fmt.Errorf("filter resonance %g must be non-negative", u.Resonance)
		}
		s.SetFilterResonance(u.Resonance)
	case EnvelopeAttack:
		if !unit(u.Value) {
			return fmt.Errorf("attack %g outside [0,1]", u.Value)
		}
		s.SetAttack(u.Value)
	case EnvelopeDecay:
		if !unit(u.Value) {
			return fmt.Errorf("decay %g outside [0,1]", u.Value)
		}
		s.SetDecay(u.Value)
	case EnvelopeSustain:
		if !unit(u.Value) {
			return fmt.Errorf("sustain %g outside [0,1]", u.Value)
		}
		s.SetSustain(u.Value)
	case EnvelopeRelease:
		if !unit(u.Value) {
			return fmt.Errorf("release %g outside [0,1]", u.Value)
		}
		s.SetRelease(u.Value)
	case StepToggle:
		if state.Index(u.Track, u.Step) < 0 {
			return fmt.Errorf("step %d/%d outside grid", u.Track, u.Step)
		}
		s.SetStepEnabled(u.Track, u.Step, u.Enabled)
	case StepFrequency:
		if state.Index(u.Track, u.Step) < 0 {
			return fmt.Errorf("step %d/%d outside grid", u.Track, u.Step)
		}
		if !positive(u.Hz) {
			return fmt.Errorf("step frequency %g must be positive", u.Hz)
		}
		s.SetStepFrequency(u.Track, u.Step, u.Hz)
	case TrackVolume:
		if u.Track < 0 || u.Track >= state.NumTracks {
			return fmt.Errorf("track %d outside grid", u.Track)
		}
		if !unit(u.Volume) {
			return fmt.Errorf("track volume %g outside [0,1]", u.Volume)
		}
		s.SetTrackVolume(u.Track, u.Volume)
	case TrackPan:
		if u.Track < 0 || u.Track >= state.NumTracks {
			return fmt.Errorf("track %d outside grid", u.Track)
		}
		if !finite(u.Pan) {
			return fmt.Errorf("track pan %g is not finite", u.Pan)
		}
		s.SetTrackPan(u.Track, u.Pan)
	case TransportPlay:
		s.SetPlaying(true)
	case TransportStop:
		s.SetPlaying(false)
	case TransportRewind:
		s.RequestRewind()
	case TempoChange:
		if !positive(u.BPM) {
			return fmt.Errorf("tempo %g must be positive", u.BPM)
		}
		s.SetTempo(u.BPM)
	case MasterEQ:
		if u.Band < 0 || u.Band >= effects.EQBands {
			return fmt.Errorf("eq band %d out of range", u.Band)
		}
		if !finite(u.Gain) {
			return fmt.Errorf("eq gain %g is not finite", u.Gain)
		}
		if eq != nil {
			eq.SetGain(u.Band, u.Gain)
		}
	default:
		return fmt.Errorf("unknown update %T", u)
	}
	return nil
}

func finite(v float32) bool { return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0) }

func positive(v float32) bool { return finite(v) && v > 0 }

func nonNegative(v float32) bool { return finite(v) && v >= 0 }

func unit(v float32) bool { return v >= 0 && v <= 1 }
