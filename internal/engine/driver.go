// Package engine renders the live 8x16 grid held in state.AudioState. The
// Driver is the audio callback: it owns the transport clock and the master
// bus and never allocates, locks or logs while processing.
package engine

import (
	"github.com/roscosynth/rosco/internal/effects"
	"github.com/roscosynth/rosco/internal/envelope"
	"github.com/roscosynth/rosco/internal/filter"
	"github.com/roscosynth/rosco/internal/note"
	"github.com/roscosynth/rosco/internal/sequence"
	"github.com/roscosynth/rosco/internal/state"
	"github.com/roscosynth/rosco/internal/waveform"
)

const (
	// Headroom scales each track so eight full-volume tracks stay near
	// unity before the master clamp.
	Headroom = 0.1

	// peakDecay is applied to the published peaks once per buffer.
	peakDecay = 0.85
)

type Driver struct {
	state      *state.AudioState
	tables     *waveform.Tables
	sampleRate int

	master *filter.Stereo
	eq     *effects.EQ5Band
	bus    *effects.Chain
	tap    func([]float32)

	env  envelope.Envelope
	adsr [4]float32

	cutoff    float32
	resonance float32

	step    int
	stepPos uint64
	count   uint64

	peakL, peakR float32
}

// Option configures a Driver.
type Option func(*Driver)

// WithTap installs a callback invoked with each rendered stereo buffer. It
// runs on the audio goroutine.
func WithTap(tap func([]float32)) Option {
	return func(d *Driver) { d.tap = tap }
}

// WithEQ replaces the master EQ, letting the caller keep a handle to it.
func WithEQ(eq *effects.EQ5Band) Option {
	return func(d *Driver) { d.eq = eq }
}

// New builds a driver reading s. tables must be built at sampleRate.
func New(s *state.AudioState, tables *waveform.Tables, sampleRate int, opts ...Option) (*Driver, error) {
	d := &Driver{
		state:      s,
		tables:     tables,
		sampleRate: sampleRate,
		cutoff:     s.FilterCutoff(),
		resonance:  s.FilterResonance(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.eq == nil {
		eq, err := effects.NewEQ5Band(sampleRate)
		if err != nil {
			return nil, err
		}
		d.eq = eq
	}
	cfg := filter.DefaultConfig(filter.LowPass, sampleRate)
	cfg.Frequency = d.cutoff
	cfg.Resonance = d.resonance
	if cfg.Resonance < 0 {
		cfg.Resonance = 0
	}
	master, err := filter.NewStereo(cfg)
	if err != nil {
		return nil, err
	}
	d.master = master
	d.bus = effects.NewChain(master, d.eq)
	d.env = envelope.Default()
	d.syncEnvelope()
	return d, nil
}

// EQ returns the master EQ. Its gains may be set from any goroutine.
func (d *Driver) EQ() *effects.EQ5Band { return d.eq }

// SampleRate is the rate the driver renders at.
func (d *Driver) SampleRate() int { return d.sampleRate }

// Process fills dst with interleaved stereo frames.
func (d *Driver) Process(dst []float32) {
	s := d.state
	if s.TakeRewind() {
		d.rewind()
	}
	if !s.Playing() {
		clear(dst)
		d.peakL *= peakDecay
		d.peakR *= peakDecay
		s.PublishPeaks(d.peakL, d.peakR)
		if d.tap != nil {
			d.tap(dst)
		}
		return
	}

	d.syncFilter()
	d.syncEnvelope()
	kind := s.OscWaveform()
	oscVolume := s.OscVolume()
	perStep := sequence.SamplesPerBeat(s.Tempo(), d.sampleRate)

	var peakL, peakR float32
	frames := len(dst) / 2
	for i := 0; i < frames; i++ {
		if d.stepPos >= perStep {
			d.stepPos = 0
			d.step = (d.step + 1) % state.NumSteps
			s.PublishStep(d.step)
		}
		progress := float32(d.stepPos) / float32(perStep)
		gain := d.env.Gain(progress) * oscVolume * Headroom

		var l, r float32
		for track := 0; track < state.NumTracks; track++ {
			if !s.StepEnabled(track, d.step) {
				continue
			}
			v := d.tables.Sample(kind, s.StepFrequency(track, d.step), d.count)
			v *= s.TrackVolume(track) * gain
			tl, tr := note.Pan(v, s.TrackPan(track))
			l += tl
			r += tr
		}
		// A non-finite sum would stick in the master filter history.
		if !finite(l) || !finite(r) {
			l, r = 0, 0
		}
		l, r = d.bus.Process(l, r)
		l, r = clamp(l), clamp(r)
		dst[2*i], dst[2*i+1] = l, r

		if a := abs(l); a > peakL {
			peakL = a
		}
		if a := abs(r); a > peakR {
			peakR = a
		}
		d.stepPos++
		d.count++
	}
	s.AddSamples(uint64(frames))

	d.peakL = max(d.peakL*peakDecay, peakL)
	d.peakR = max(d.peakR*peakDecay, peakR)
	s.PublishPeaks(d.peakL, d.peakR)
	if d.tap != nil {
		d.tap(dst)
	}
}

// Step is the step the driver is rendering. Audio goroutine only.
func (d *Driver) Step() int { return d.step }

func (d *Driver) rewind() {
	d.step = 0
	d.stepPos = 0
	d.count = 0
	d.state.PublishStep(0)
	d.state.ResetSampleCount()
	d.bus.Reset()
}

// syncFilter retunes the master filter when cutoff or resonance changed.
func (d *Driver) syncFilter() {
	cutoff, res := d.state.FilterCutoff(), d.state.FilterResonance()
	if cutoff == d.cutoff && res == d.resonance {
		return
	}
	d.cutoff, d.resonance = cutoff, res
	d.master.Retune(cutoff, res)
}

// syncEnvelope rebuilds the step envelope when the ADSR cells changed.
func (d *Driver) syncEnvelope() {
	s := d.state
	adsr := [4]float32{s.Attack(), s.Decay(), s.Sustain(), s.Release()}
	if adsr == d.adsr {
		return
	}
	d.adsr = adsr
	d.env = StepEnvelope(adsr[0], adsr[1], adsr[2], adsr[3])
}

// StepEnvelope builds the per-step envelope: attack to full level, decay to
// sustain, hold, then release to silence. Attack, decay and release are
// fractions of a step. Out of range values are clamped, see envelope.Clamped.
func StepEnvelope(attack, decay, sustain, release float32) envelope.Envelope {
	hold := 1 - attack - decay - release
	if !(hold > 0) {
		hold = 0
	}
	return envelope.Clamped(
		envelope.Pair{Duration: attack, Level: 1},
		envelope.Pair{Duration: decay, Level: sustain},
		envelope.Pair{Duration: hold, Level: sustain},
		envelope.Pair{Duration: release, Level: 0},
	)
}

// clamp limits v to [-1,1]. NaN maps to 0.
func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	if v != v {
		return 0
	}
	return v
}

func finite(v float32) bool { return v-v == 0 }

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
