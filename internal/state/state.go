// Package state holds the lock-free grid and transport shared between the
// control goroutine and the audio goroutine.
//
// Every field is an independent atomic cell. A control edit that touches two
// fields (enable a step, then set its frequency) may be observed by the audio
// goroutine in either order or split across one buffer; nothing here offers
// multi-field consistency. Float values are stored as float32 bit patterns.
package state

import (
	"math"
	"sync/atomic"

	"github.com/roscosynth/rosco/internal/waveform"
)

const (
	NumTracks = 8
	NumSteps  = 16
	NumCells  = NumTracks * NumSteps
)

const (
	DefaultTrackVolume   = 0.8
	DefaultStepFrequency = 261.63
	DefaultTempo         = 120.0
	DefaultOscVolume     = 0.75
	DefaultOscFrequency  = 440.0
	DefaultCutoff        = 20000.0
	DefaultResonance     = 0.0
)

// Default ADSR levels for the per-step envelope. Attack, decay and release
// are fractions of a step; sustain is a level.
const (
	DefaultAttack  = 0.01
	DefaultDecay   = 0.1
	DefaultSustain = 0.7
	DefaultRelease = 0.2
)

type float32Cell struct{ bits atomic.Uint32 }

func (c *float32Cell) Store(v float32) { c.bits.Store(math.Float32bits(v)) }
func (c *float32Cell) Load() float32   { return math.Float32frombits(c.bits.Load()) }

// AudioState is created once per engine and lives as long as it.
type AudioState struct {
	playing     atomic.Bool
	currentStep atomic.Uint32
	tempo       float32Cell
	sampleCount atomic.Uint64
	rewind      atomic.Bool

	enabled   [NumCells]atomic.Bool
	frequency [NumCells]float32Cell
	volume    [NumTracks]float32Cell
	pan       [NumTracks]float32Cell

	oscWaveform  atomic.Uint32
	oscVolume    float32Cell
	oscFrequency float32Cell

	cutoff    float32Cell
	resonance float32Cell

	attack  float32Cell
	decay   float32Cell
	sustain float32Cell
	release float32Cell

	peakL float32Cell
	peakR float32Cell
}

// New returns a stopped state with defaults in every cell.
func New() *AudioState {
	s := &AudioState{}
	s.tempo.Store(DefaultTempo)
	for i := range s.frequency {
		s.frequency[i].Store(DefaultStepFrequency)
	}
	for i := range s.volume {
		s.volume[i].Store(DefaultTrackVolume)
	}
	s.oscWaveform.Store(uint32(waveform.Sine))
	s.oscVolume.Store(DefaultOscVolume)
	s.oscFrequency.Store(DefaultOscFrequency)
	s.cutoff.Store(DefaultCutoff)
	s.resonance.Store(DefaultResonance)
	s.attack.Store(DefaultAttack)
	s.decay.Store(DefaultDecay)
	s.sustain.Store(DefaultSustain)
	s.release.Store(DefaultRelease)
	return s
}

// Index flattens (track, step) to track*NumSteps+step. It returns -1 when
// either coordinate is out of range.
func Index(track, step int) int {
	if track < 0 || track >= NumTracks || step < 0 || step >= NumSteps {
		return -1
	}
	return track*NumSteps + step
}

func validTrack(track int) bool { return track >= 0 && track < NumTracks }

// Transport.

func (s *AudioState) SetPlaying(v bool) { s.playing.Store(v) }
func (s *AudioState) Playing() bool     { return s.playing.Load() }

// CurrentStep is the step the audio goroutine last published. It may lag
// the audible step by up to one buffer.
func (s *AudioState) CurrentStep() int { return int(s.currentStep.Load()) }

// PublishStep is called by the audio goroutine only.
func (s *AudioState) PublishStep(step int) { s.currentStep.Store(uint32(step % NumSteps)) }

// SetTempo stores bpm. Non-positive or NaN values are ignored.
func (s *AudioState) SetTempo(bpm float32) {
	if bpm > 0 {
		s.tempo.Store(bpm)
	}
}
func (s *AudioState) Tempo() float32 { return s.tempo.Load() }

// RequestRewind asks the audio goroutine to restart the step clock.
func (s *AudioState) RequestRewind() { s.rewind.Store(true) }

// TakeRewind consumes a pending rewind request.
func (s *AudioState) TakeRewind() bool { return s.rewind.Swap(false) }

// SampleCount is the number of frames rendered while playing.
func (s *AudioState) SampleCount() uint64 { return s.sampleCount.Load() }
func (s *AudioState) AddSamples(n uint64) { s.sampleCount.Add(n) }
func (s *AudioState) ResetSampleCount()   { s.sampleCount.Store(0) }

// Grid.

func (s *AudioState) SetStepEnabled(track, step int, on bool) {
	if i := Index(track, step); i >= 0 {
		s.enabled[i].Store(on)
	}
}

func (s *AudioState) StepEnabled(track, step int) bool {
	if i := Index(track, step); i >= 0 {
		return s.enabled[i].Load()
	}
	return false
}

// ToggleStep flips a step and returns its new value.
func (s *AudioState) ToggleStep(track, step int) bool {
	i := Index(track, step)
	if i < 0 {
		return false
	}
	for {
		old := s.enabled[i].Load()
		if s.enabled[i].CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (s *AudioState) SetStepFrequency(track, step int, hz float32) {
	if i := Index(track, step); i >= 0 {
		s.frequency[i].Store(hz)
	}
}

func (s *AudioState) StepFrequency(track, step int) float32 {
	if i := Index(track, step); i >= 0 {
		return s.frequency[i].Load()
	}
	return 0
}

func (s *AudioState) SetTrackVolume(track int, v float32) {
	if validTrack(track) {
		s.volume[track].Store(v)
	}
}

func (s *AudioState) TrackVolume(track int) float32 {
	if validTrack(track) {
		return s.volume[track].Load()
	}
	return 0
}

// SetTrackPan stores pan clamped to [-1, 1]. NaN stores centre.
func (s *AudioState) SetTrackPan(track int, pan float32) {
	if !validTrack(track) {
		return
	}
	switch {
	case pan > 1:
		pan = 1
	case pan < -1:
		pan = -1
	case pan != pan:
		pan = 0
	}
	s.pan[track].Store(pan)
}

func (s *AudioState) TrackPan(track int) float32 {
	if validTrack(track) {
		return s.pan[track].Load()
	}
	return 0
}

// Oscillator.

func (s *AudioState) SetOscWaveform(k waveform.Kind) { s.oscWaveform.Store(uint32(k)) }
func (s *AudioState) OscWaveform() waveform.Kind     { return waveform.Kind(s.oscWaveform.Load()) }
func (s *AudioState) SetOscVolume(v float32)         { s.oscVolume.Store(v) }
func (s *AudioState) OscVolume() float32             { return s.oscVolume.Load() }
func (s *AudioState) SetOscFrequency(hz float32)     { s.oscFrequency.Store(hz) }
func (s *AudioState) OscFrequency() float32          { return s.oscFrequency.Load() }

// Filter.

func (s *AudioState) SetFilterCutoff(hz float32)   { s.cutoff.Store(hz) }
func (s *AudioState) FilterCutoff() float32        { return s.cutoff.Load() }
func (s *AudioState) SetFilterResonance(r float32) { s.resonance.Store(r) }
func (s *AudioState) FilterResonance() float32     { return s.resonance.Load() }

// Envelope.

func (s *AudioState) SetAttack(v float32)  { s.attack.Store(v) }
func (s *AudioState) Attack() float32      { return s.attack.Load() }
func (s *AudioState) SetDecay(v float32)   { s.decay.Store(v) }
func (s *AudioState) Decay() float32       { return s.decay.Load() }
func (s *AudioState) SetSustain(v float32) { s.sustain.Store(v) }
func (s *AudioState) Sustain() float32     { return s.sustain.Load() }
func (s *AudioState) SetRelease(v float32) { s.release.Store(v) }
func (s *AudioState) Release() float32     { return s.release.Load() }

// Metering, written by the audio goroutine.

func (s *AudioState) PublishPeaks(l, r float32) {
	s.peakL.Store(l)
	s.peakR.Store(r)
}

func (s *AudioState) Peaks() (float32, float32) { return s.peakL.Load(), s.peakR.Load() }
