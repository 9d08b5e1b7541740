// Package filter implements the RBJ cookbook biquads (low-pass, high-pass,
// band-pass and notch) with a Direct-Form-II state and dry/wet mix.
package filter

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidConfig = errors.New("invalid filter config")

type Kind uint8

const (
	LowPass Kind = iota
	HighPass
	BandPass
	Notch
)

func (k Kind) String() string {
	switch k {
	case LowPass:
		return "lowpass"
	case HighPass:
		return "highpass"
	case BandPass:
		return "bandpass"
	case Notch:
		return "notch"
	default:
		return fmt.Sprintf("filter(%d)", uint8(k))
	}
}

const (
	MinFrequency     = 20.0
	MinBandwidth     = 10.0
	butterworthQ     = 0.707
	maxNyquistRatio  = 0.99
	maxBandwidthRate = 0.8
)

const (
	DefaultFrequency = 1000.0
	DefaultBandwidth = 200.0
)

// Config is the user facing description of a filter. Frequency is the cutoff
// for LowPass/HighPass and the center for BandPass/Notch. Bandwidth is used
// by BandPass and Notch only.
type Config struct {
	Kind       Kind
	Frequency  float32
	Resonance  float32
	Bandwidth  float32
	Mix        float32
	SampleRate int
}

// DefaultConfig is a fully wet filter at 1kHz.
func DefaultConfig(kind Kind, sampleRate int) Config {
	return Config{
		Kind:       kind,
		Frequency:  DefaultFrequency,
		Bandwidth:  DefaultBandwidth,
		Mix:        1,
		SampleRate: sampleRate,
	}
}

// NoOpConfig passes input through unchanged (mix 0).
func NoOpConfig(kind Kind, sampleRate int) Config {
	cfg := DefaultConfig(kind, sampleRate)
	cfg.Frequency = float32(sampleRate) / 2
	cfg.Bandwidth = 1
	cfg.Mix = 0
	return cfg
}

// Coefficients of the normalized transfer function (a0 == 1).
type Coefficients struct {
	B0, B1, B2, A1, A2 float32
}

// Compile validates cfg, clamps frequency and bandwidth into range and
// derives the coefficients.
func (cfg Config) Compile() (*Filter, error) {
	if cfg.Kind > Notch {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidConfig, cfg.Kind)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, cfg.SampleRate)
	}
	if cfg.Mix < 0 || cfg.Mix > 1 || math.IsNaN(float64(cfg.Mix)) {
		return nil, fmt.Errorf("%w: mix %g outside [0,1]", ErrInvalidConfig, cfg.Mix)
	}
	if !(cfg.Resonance >= 0) {
		return nil, fmt.Errorf("%w: negative resonance %g", ErrInvalidConfig, cfg.Resonance)
	}
	f := &Filter{
		kind:          cfg.Kind,
		sampleRate:    cfg.SampleRate,
		resonance:     cfg.Resonance,
		mix:           cfg.Mix,
		mixComplement: 1 - cfg.Mix,
	}
	f.frequency = ClampFrequency(cfg.Frequency, cfg.SampleRate)
	f.bandwidth = cfg.Bandwidth
	f.UpdateCoefficients()
	return f, nil
}

// ClampFrequency bounds f to [MinFrequency, 0.99*Nyquist].
func ClampFrequency(f float32, sampleRate int) float32 {
	hi := float32(sampleRate) / 2 * maxNyquistRatio
	if f < MinFrequency || math.IsNaN(float64(f)) {
		return MinFrequency
	}
	if f > hi {
		return hi
	}
	return f
}

// ClampBandwidth bounds bw to [MinBandwidth, 0.8*center].
func ClampBandwidth(bw, center float32) float32 {
	hi := center * maxBandwidthRate
	if bw < MinBandwidth || math.IsNaN(float64(bw)) {
		bw = MinBandwidth
	}
	if bw > hi {
		bw = hi
	}
	return bw
}

// Filter is a compiled biquad. It is stateful and must be driven from one
// goroutine.
type Filter struct {
	kind       Kind
	sampleRate int
	frequency  float32
	resonance  float32
	// bandwidth is the configured value; effBandwidth is bandwidth clamped
	// against the current center and is what the coefficients use.
	bandwidth     float32
	effBandwidth  float32
	mix           float32
	mixComplement float32
	coef          Coefficients
	// xHistory holds the Direct-Form-II intermediate w[n-1], w[n-2];
	// yHistory the last two outputs.
	xHistory [2]float32
	yHistory [2]float32
}

func (f *Filter) Kind() Kind                 { return f.kind }
func (f *Filter) Frequency() float32         { return f.frequency }
func (f *Filter) Resonance() float32         { return f.resonance }
func (f *Filter) Bandwidth() float32         { return f.effBandwidth }
func (f *Filter) Mix() float32               { return f.mix }
func (f *Filter) Coefficients() Coefficients { return f.coef }

// Apply filters one sample and returns dry*(1-mix) + filtered*mix.
func (f *Filter) Apply(sample, _ float32) float32 {
	c := &f.coef
	w := sample - c.A1*f.xHistory[0] - c.A2*f.xHistory[1]
	out := c.B0*w + c.B1*f.xHistory[0] + c.B2*f.xHistory[1]
	f.xHistory[1] = f.xHistory[0]
	f.xHistory[0] = w
	f.yHistory[1] = f.yHistory[0]
	f.yHistory[0] = out
	return sample*f.mixComplement + out*f.mix
}

// Reset zeroes the history; coefficients are kept.
func (f *Filter) Reset() {
	f.xHistory = [2]float32{}
	f.yHistory = [2]float32{}
}

// ConfiguredBandwidth is the bandwidth as set, before clamping against the
// center. Bandwidth reports the value in effect.
func (f *Filter) ConfiguredBandwidth() float32 { return f.bandwidth }

// Retune moves the frequency and resonance and recomputes the coefficients.
// Negative and non-finite resonance is treated as 0. The configured
// bandwidth is clamped against the new center but not overwritten. Retune
// does not allocate and may be called from the audio goroutine.
func (f *Filter) Retune(frequency, resonance float32) {
	if !(resonance >= 0) || math.IsInf(float64(resonance), 1) {
		resonance = 0
	}
	f.frequency = ClampFrequency(frequency, f.sampleRate)
	f.resonance = resonance
	f.UpdateCoefficients()
}

// SetBandwidth changes the bandwidth of a BandPass or Notch filter.
func (f *Filter) SetBandwidth(bw float32) {
	f.bandwidth = bw
	f.UpdateCoefficients()
}

// UpdateCoefficients recomputes the coefficients from the current settings.
func (f *Filter) UpdateCoefficients() {
	f.effBandwidth = f.bandwidth
	if f.kind == BandPass || f.kind == Notch {
		f.effBandwidth = ClampBandwidth(f.bandwidth, f.frequency)
	}
	f.coef = compute(f.kind, f.frequency, f.resonance, f.effBandwidth, f.sampleRate)
}

// Clone returns a filter with the same settings and cleared history.
func (f *Filter) Clone() *Filter {
	c := *f
	c.Reset()
	return &c
}

func compute(kind Kind, freq, resonance, bandwidth float32, sampleRate int) Coefficients {
	omega := 2 * math.Pi * float64(freq) / float64(sampleRate)
	sinW, cosW := math.Sincos(omega)

	var q float64
	switch kind {
	case LowPass, HighPass:
		q = butterworthQ
		if resonance > 0 {
			q = 1 / (2 * float64(resonance))
		}
	default:
		q = float64(freq) / float64(bandwidth)
		if resonance > 0 {
			q *= 1 + float64(resonance)*10
		}
	}
	alpha := sinW / (2 * q)

	var b0, b1, b2 float64
	switch kind {
	case LowPass:
		b0 = (1 - cosW) / 2
		b1 = 1 - cosW
		b2 = (1 - cosW) / 2
	case HighPass:
		b0 = (1 + cosW) / 2
		b1 = -(1 + cosW)
		b2 = (1 + cosW) / 2
	case BandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	case Notch:
		b0 = 1
		b1 = -2 * cosW
		b2 = 1
	}
	a0 := 1 + alpha
	a1 := -2 * cosW
	a2 := 1 - alpha
	return Coefficients{
		B0: float32(b0 / a0),
		B1: float32(b1 / a0),
		B2: float32(b2 / a0),
		A1: float32(a1 / a0),
		A2: float32(a2 / a0),
	}
}
