package effects

import (
	"math"
	"sync/atomic"

	"github.com/roscosynth/rosco/internal/filter"
)

// EQBands is the number of master EQ bands.
const EQBands = 5

// MaxEQGain caps a band at roughly +12dB.
const MaxEQGain = 4

// Crossovers are the band edges in Hz.
var Crossovers = [EQBands - 1]float32{200, 800, 2500, 8000}

// EQ5Band is the master bus equalizer. Each crossover is a Butterworth
// low-pass biquad run on the input; a band is the difference between two
// neighbouring low-passes, so the bands always sum back to the input.
// Gains are float32 bit patterns in atomic cells so the control goroutine
// can move them while the audio goroutine reads.
type EQ5Band struct {
	gains [EQBands]atomic.Uint32
	lows  [EQBands - 1]*filter.Stereo
}

// NewEQ5Band creates a flat EQ.
func NewEQ5Band(sampleRate int) (*EQ5Band, error) {
	eq := &EQ5Band{}
	for i, freq := range Crossovers {
		cfg := filter.DefaultConfig(filter.LowPass, sampleRate)
		cfg.Frequency = freq
		lp, err := filter.NewStereo(cfg)
		if err != nil {
			return nil, err
		}
		eq.lows[i] = lp
	}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float32bits(1.0))
	}
	return eq, nil
}

// SetGain sets band (0-4) to gain, clamped to [0, MaxEQGain]. 1.0 is unity.
// Out of range bands are ignored.
func (eq *EQ5Band) SetGain(band int, gain float32) {
	if band >= 0 && band < EQBands {
		eq.gains[band].Store(math.Float32bits(clamp(gain, 0, MaxEQGain)))
	}
}

// Gain returns the current gain for band, or unity for an unknown band.
func (eq *EQ5Band) Gain(band int) float32 {
	if band >= 0 && band < EQBands {
		return math.Float32frombits(eq.gains[band].Load())
	}
	return 1.0
}

// Gains snapshots every band.
func (eq *EQ5Band) Gains() [EQBands]float32 {
	var out [EQBands]float32
	for i := range out {
		out[i] = eq.Gain(i)
	}
	return out
}

// SetGains stores every band at once. Each store is independent.
func (eq *EQ5Band) SetGains(gains [EQBands]float32) {
	for i, g := range gains {
		eq.SetGain(i, g)
	}
}

func (eq *EQ5Band) Process(l, r float32) (float32, float32) {
	var outL, outR, belowL, belowR float32
	for i, lp := range eq.lows {
		lowL, lowR := lp.Process(l, r)
		g := eq.Gain(i)
		outL += (lowL - belowL) * g
		outR += (lowR - belowR) * g
		belowL, belowR = lowL, lowR
	}
	g := eq.Gain(EQBands - 1)
	outL += (l - belowL) * g
	outR += (r - belowR) * g
	return outL, outR
}

func (eq *EQ5Band) Reset() {
	for _, lp := range eq.lows {
		lp.Reset()
	}
}
