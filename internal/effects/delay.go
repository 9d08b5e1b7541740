package effects

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidConfig = errors.New("invalid effect config")

// DelayConfig describes a multi-tap echo.
type DelayConfig struct {
	Mix   float32 // wet/dry 0..1
	Decay float32 // per-tap attenuation, tap k is scaled by Decay^k
	// IntervalMs is the spacing between taps.
	IntervalMs float32
	// DurationMs staggers the managers: manager i hears its taps i*DurationMs
	// later than manager 0. Zero means one interval.
	DurationMs          float32
	NumRepeats          int
	NumPredelaySamples  int
	NumConcurrentDelays int
}

// DefaultDelayConfig is a short slap-back.
func DefaultDelayConfig() DelayConfig {
	return DelayConfig{
		Mix:                 0.5,
		Decay:               0.5,
		IntervalMs:          100,
		NumRepeats:          4,
		NumConcurrentDelays: 1,
	}
}

func (c DelayConfig) validate() error {
	switch {
	case c.Mix < 0 || c.Mix > 1:
		return fmt.Errorf("%w: delay mix %g outside [0,1]", ErrInvalidConfig, c.Mix)
	case c.Decay < 0:
		return fmt.Errorf("%w: delay decay %g is negative", ErrInvalidConfig, c.Decay)
	case c.IntervalMs <= 0:
		return fmt.Errorf("%w: delay interval %gms must be positive", ErrInvalidConfig, c.IntervalMs)
	case c.DurationMs < 0:
		return fmt.Errorf("%w: delay duration %gms is negative", ErrInvalidConfig, c.DurationMs)
	case c.NumRepeats < 1:
		return fmt.Errorf("%w: delay needs at least one repeat", ErrInvalidConfig)
	case c.NumPredelaySamples < 0:
		return fmt.Errorf("%w: negative predelay", ErrInvalidConfig)
	case c.NumConcurrentDelays < 1:
		return fmt.Errorf("%w: delay needs at least one manager", ErrInvalidConfig)
	}
	return nil
}

// tapManager is one recording history. Offset 0 is the newest sample.
type tapManager struct {
	buf  []float32
	pos  int
	seen int
}

func (m *tapManager) write(v float32) {
	m.buf[m.pos] = v
	if m.seen < len(m.buf) {
		m.seen++
	}
}

func (m *tapManager) at(offset int) float32 {
	if offset >= m.seen {
		return 0
	}
	i := m.pos - offset
	if i < 0 {
		i += len(m.buf)
	}
	return m.buf[i]
}

func (m *tapManager) advance() {
	m.pos++
	if m.pos == len(m.buf) {
		m.pos = 0
	}
}

func (m *tapManager) reset() {
	clear(m.buf)
	m.pos = 0
	m.seen = 0
}

// Delay is a multi-tap echo over a set of staggered recording managers.
// Every manager records the input. Buffers are sized at construction; Apply
// never allocates.
type Delay struct {
	cfg           DelayConfig
	intervalSamps int
	staggerSamps  int
	offsets       []int
	gains         []float32
	managers      []tapManager
	mixComplement float32
}

// NewDelay validates cfg and allocates the tap histories.
func NewDelay(sampleRate int, cfg DelayConfig) (*Delay, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	interval := msToSamples(cfg.IntervalMs, sampleRate)
	stagger := interval
	if cfg.DurationMs > 0 {
		stagger = msToSamples(cfg.DurationMs, sampleRate)
	}
	d := &Delay{
		cfg:           cfg,
		intervalSamps: interval,
		staggerSamps:  stagger,
		offsets:       make([]int, cfg.NumRepeats),
		gains:         make([]float32, cfg.NumRepeats),
		managers:      make([]tapManager, cfg.NumConcurrentDelays),
		mixComplement: 1 - cfg.Mix,
	}
	for k := 1; k <= cfg.NumRepeats; k++ {
		d.offsets[k-1] = cfg.NumPredelaySamples + k*interval
		d.gains[k-1] = float32(math.Pow(float64(cfg.Decay), float64(k)))
	}
	last := d.offsets[cfg.NumRepeats-1]
	for i := range d.managers {
		d.managers[i].buf = make([]float32, last+i*stagger+1)
	}
	return d, nil
}

func msToSamples(ms float32, sampleRate int) int {
	n := int(math.Round(float64(ms) * float64(sampleRate) / 1000))
	if n < 1 {
		n = 1
	}
	return n
}

// Config returns the configuration the delay was built from.
func (d *Delay) Config() DelayConfig { return d.cfg }

// IntervalSamples is the tap spacing in samples.
func (d *Delay) IntervalSamples() int { return d.intervalSamps }

// StaggerSamples is the delay between one manager's taps and the next's.
func (d *Delay) StaggerSamples() int { return d.staggerSamps }

// TapOffsets returns the sample offset of every tap of every manager,
// manager 0 first, first tap first.
func (d *Delay) TapOffsets() []int {
	out := make([]int, 0, len(d.offsets)*len(d.managers))
	for i := range d.managers {
		for _, off := range d.offsets {
			out = append(out, off+i*d.staggerSamps)
		}
	}
	return out
}

// Apply feeds one sample and returns the dry/wet mix. The position argument
// is accepted for signature parity with the other time based effects.
func (d *Delay) Apply(sample, _ float32) float32 {
	var wet float32
	for i := range d.managers {
		m := &d.managers[i]
		m.write(sample)
		shift := i * d.staggerSamps
		for k, off := range d.offsets {
			wet += m.at(off+shift) * d.gains[k]
		}
		m.advance()
	}
	return sample*d.mixComplement + wet*d.cfg.Mix
}

func (d *Delay) Reset() {
	for i := range d.managers {
		d.managers[i].reset()
	}
}

// Clone returns a delay with the same configuration and empty history.
func (d *Delay) Clone() *Delay {
	c := &Delay{
		cfg:           d.cfg,
		intervalSamps: d.intervalSamps,
		staggerSamps:  d.staggerSamps,
		offsets:       d.offsets,
		gains:         d.gains,
		managers:      make([]tapManager, len(d.managers)),
		mixComplement: d.mixComplement,
	}
	for i := range c.managers {
		c.managers[i].buf = make([]float32, len(d.managers[i].buf))
	}
	return c
}
