// Package waveform holds the precomputed single-cycle lookup tables used by
// every oscillator in the engine, plus a stateless Gaussian noise source.
package waveform

import (
	"math"
	"math/rand/v2"
	"strings"
)

const twoPi = math.Pi * 2

// TableSize is the number of phase buckets in one table cycle.
const TableSize = 4096

// NoiseStdDev is the standard deviation of GaussianNoise draws.
const NoiseStdDev = 0.3

// Kind identifies a waveform.
type Kind uint8

const (
	Sine Kind = iota
	Square
	Triangle
	Saw
	GaussianNoise
)

const numTables = 4

func (k Kind) String() string {
	switch k {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Saw:
		return "saw"
	case GaussianNoise:
		return "noise"
	default:
		return "unknown"
	}
}

// ParseKind maps a waveform name to its Kind.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin":
		return Sine, true
	case "square", "sqr":
		return Square, true
	case "triangle", "tri":
		return Triangle, true
	case "saw", "sawtooth":
		return Saw, true
	case "noise", "gaussian", "gaussiannoise":
		return GaussianNoise, true
	}
	return Sine, false
}

// Tables is immutable after NewTables and safe to share between goroutines.
type Tables struct {
	sampleRate float64
	tables     [numTables][TableSize]float32
}

// NewTables precomputes one cycle of each periodic waveform.
func NewTables(sampleRate int) *Tables {
	t := &Tables{sampleRate: float64(sampleRate)}
	for i := 0; i < TableSize; i++ {
		phase := float64(i) / TableSize
		t.tables[Sine][i] = float32(math.Sin(twoPi * phase))
		if phase < 0.5 {
			t.tables[Square][i] = 1
		} else {
			t.tables[Square][i] = -1
		}
		switch {
		case phase < 0.25:
			t.tables[Triangle][i] = float32(4 * phase)
		case phase < 0.75:
			t.tables[Triangle][i] = float32(2 - 4*phase)
		default:
			t.tables[Triangle][i] = float32(4*phase - 4)
		}
		t.tables[Saw][i] = float32(2*phase - 1)
	}
	return t
}

// SampleRate returns the rate the tables are evaluated at.
func (t *Tables) SampleRate() int { return int(t.sampleRate) }

// Sample returns the amplitude of kind at frequencyHz for the given absolute
// sample index. Noise ignores frequency and index. Non-positive and
// non-finite frequencies yield silence.
func (t *Tables) Sample(kind Kind, frequencyHz float32, sampleIndex uint64) float32 {
	if kind == GaussianNoise {
		return Noise()
	}
	if kind >= numTables || !(frequencyHz > 0) || math.IsInf(float64(frequencyHz), 1) {
		return 0
	}
	return t.tables[kind][Index(frequencyHz, sampleIndex, t.sampleRate)]
}

// SampleSet sums every waveform in set.
func (t *Tables) SampleSet(set Set, frequencyHz float32, sampleIndex uint64) float32 {
	var out float32
	for i := 0; i < set.n; i++ {
		out += t.Sample(set.kinds[i], frequencyHz, sampleIndex)
	}
	return out
}

// Index maps a frequency and sample index to a table bucket:
// floor(frac(f*i/sr) * TableSize) mod TableSize.
func Index(frequencyHz float32, sampleIndex uint64, sampleRate float64) int {
	cycles := float64(frequencyHz) * float64(sampleIndex) / sampleRate
	phase := cycles - math.Floor(cycles)
	if !(phase >= 0) {
		return 0
	}
	return int(phase*TableSize) % TableSize
}

// Noise draws from a zero-mean normal distribution, clamped to [-1, 1].
// The global math/rand/v2 source is goroutine-safe and does not allocate.
func Noise() float32 {
	v := rand.NormFloat64() * NoiseStdDev
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return float32(v)
}
