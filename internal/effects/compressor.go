package effects

import (
	"fmt"
	"math"
)

// CompressorConfig describes a stereo-linked bus compressor.
type CompressorConfig struct {
	ThresholdDB float32
	Ratio       float32
	AttackMs    float32
	ReleaseMs   float32
	MakeupDB    float32
}

// DefaultCompressorConfig gently limits a summed grid.
func DefaultCompressorConfig() CompressorConfig {
	return CompressorConfig{ThresholdDB: -12, Ratio: 4, AttackMs: 5, ReleaseMs: 120, MakeupDB: 3}
}

// Compressor follows the louder channel so both channels get the same gain
// and the stereo image does not shift.
type Compressor struct {
	threshold float32
	ratio     float32
	attack    float32
	release   float32
	makeup    float32
	env       float32
	gain      float32
}

func NewCompressor(sampleRate int, cfg CompressorConfig) (*Compressor, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, sampleRate)
	}
	if cfg.Ratio < 1 {
		return nil, fmt.Errorf("%w: compressor ratio %g below 1", ErrInvalidConfig, cfg.Ratio)
	}
	if cfg.AttackMs <= 0 || cfg.ReleaseMs <= 0 {
		return nil, fmt.Errorf("%w: compressor attack %gms release %gms", ErrInvalidConfig, cfg.AttackMs, cfg.ReleaseMs)
	}
	sr := float64(sampleRate)
	return &Compressor{
		threshold: dbToLinear(cfg.ThresholdDB),
		ratio:     cfg.Ratio,
		attack:    float32(1 - math.Exp(-1/(float64(cfg.AttackMs)*sr/1000))),
		release:   float32(1 - math.Exp(-1/(float64(cfg.ReleaseMs)*sr/1000))),
		makeup:    dbToLinear(cfg.MakeupDB),
		gain:      1,
	}, nil
}

func dbToLinear(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

func (c *Compressor) Process(l, r float32) (float32, float32) {
	level := max(abs32(l), abs32(r))
	if level > c.env {
		c.env += c.attack * (level - c.env)
	} else {
		c.env += c.release * (level - c.env)
	}
	c.gain = 1
	if c.env > c.threshold {
		c.gain = float32(math.Pow(float64(c.env/c.threshold), float64(1/c.ratio-1)))
	}
	g := c.gain * c.makeup
	return l * g, r * g
}

// GainReduction is the gain applied to the last frame before makeup, in
// (0, 1].
func (c *Compressor) GainReduction() float32 { return c.gain }

func (c *Compressor) Reset() {
	c.env = 0
	c.gain = 1
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
