package filter

import (
	"errors"
	"math"
	"testing"
)

const sr = 44100

var allKinds = []Kind{LowPass, HighPass, BandPass, Notch}

func mustCompile(t *testing.T, cfg Config) *Filter {
	t.Helper()
	f, err := cfg.Compile()
	if err != nil {
		t.Fatalf("Compile(%+v): %v", cfg, err)
	}
	return f
}

func testSignal(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.6*math.Sin(2*math.Pi*440*float64(i)/sr) + 0.3*math.Sin(2*math.Pi*5000*float64(i)/sr))
	}
	return out
}

func TestResetReproducesFreshOutput(t *testing.T) {
	in := testSignal(512)
	for _, kind := range allKinds {
		cfg := DefaultConfig(kind, sr)
		cfg.Resonance = 0.3
		fresh := mustCompile(t, cfg)
		used := mustCompile(t, cfg)
		for _, x := range in {
			used.Apply(x, 0)
		}
		used.Reset()
		for i, x := range in {
			a, b := fresh.Apply(x, 0), used.Apply(x, 0)
			if a != b {
				t.Fatalf("%s: sample %d fresh=%g reset=%g", kind, i, a, b)
			}
		}
	}
}

func TestFrequencyClamp(t *testing.T) {
	hi := float32(sr) / 2 * maxNyquistRatio
	for _, kind := range allKinds {
		cfg := DefaultConfig(kind, sr)
		cfg.Frequency = -100
		if f := mustCompile(t, cfg); f.Frequency() != MinFrequency {
			t.Errorf("%s: low clamp = %g, want %g", kind, f.Frequency(), MinFrequency)
		}
		cfg.Frequency = float32(sr)/2 + 1000
		if f := mustCompile(t, cfg); f.Frequency() != hi {
			t.Errorf("%s: high clamp = %g, want %g", kind, f.Frequency(), hi)
		}
	}
}

func TestNotchBandwidthClamp(t *testing.T) {
	cfg := DefaultConfig(Notch, sr)
	cfg.Bandwidth = -50
	if f := mustCompile(t, cfg); f.Bandwidth() != MinBandwidth {
		t.Errorf("low bandwidth = %g, want %g", f.Bandwidth(), MinBandwidth)
	}
	cfg.Bandwidth = 2000
	if f := mustCompile(t, cfg); math.Abs(float64(f.Bandwidth())-800) > 1e-3 {
		t.Errorf("high bandwidth = %g, want 800", f.Bandwidth())
	}
}

func TestNoOpPassesThrough(t *testing.T) {
	for _, kind := range allKinds {
		for _, cutoff := range []float32{20, 1000, 15000} {
			cfg := NoOpConfig(kind, sr)
			cfg.Frequency = cutoff
			cfg.Resonance = 0.9
			f := mustCompile(t, cfg)
			for i, x := range testSignal(64) {
				if got := f.Apply(x, 0); math.Abs(float64(got-x)) > 1e-6 {
					t.Fatalf("%s@%g: sample %d = %g, want %g", kind, cutoff, i, got, x)
				}
			}
		}
	}
}

func TestNotchCoefficientsSymmetric(t *testing.T) {
	for _, center := range []float32{50, 440, 1000, 8000, 20000} {
		for _, res := range []float32{0, 0.2, 1} {
			cfg := DefaultConfig(Notch, sr)
			cfg.Frequency = center
			cfg.Resonance = res
			c := mustCompile(t, cfg).Coefficients()
			if c.B0 != c.B2 {
				t.Errorf("center %g res %g: b0=%g b2=%g", center, res, c.B0, c.B2)
			}
		}
	}
}

func TestHalfMixLiesBetweenDryAndWet(t *testing.T) {
	for _, kind := range allKinds {
		cfg := DefaultConfig(kind, sr)
		cfg.Frequency = 100
		wet := mustCompile(t, cfg)
		cfg.Mix = 0.5
		half := mustCompile(t, cfg)
		for i, x := range testSignal(256) {
			w := wet.Apply(x, 0)
			h := half.Apply(x, 0)
			if math.Abs(float64(w-x)) < 1e-4 {
				continue
			}
			lo, hi := x, w
			if lo > hi {
				lo, hi = hi, lo
			}
			if h <= lo || h >= hi {
				t.Fatalf("%s: sample %d half=%g not strictly between dry=%g wet=%g", kind, i, h, x, w)
			}
		}
	}
}

func TestLowPassAttenuatesHighFrequency(t *testing.T) {
	cfg := DefaultConfig(LowPass, sr)
	cfg.Frequency = 200
	f := mustCompile(t, cfg)
	var peak float32
	for i := 0; i < 4096; i++ {
		x := float32(math.Sin(2 * math.Pi * 10000 * float64(i) / sr))
		y := f.Apply(x, 0)
		if i > 1024 && float32(math.Abs(float64(y))) > peak {
			peak = float32(math.Abs(float64(y)))
		}
	}
	if peak > 0.01 {
		t.Fatalf("10kHz through 200Hz low-pass peaked at %g", peak)
	}
}

func TestRetuneRecomputes(t *testing.T) {
	f := mustCompile(t, DefaultConfig(LowPass, sr))
	before := f.Coefficients()
	f.Retune(5000, 0.5)
	if f.Coefficients() == before {
		t.Fatal("coefficients unchanged after retune")
	}
	if f.Frequency() != 5000 || f.Resonance() != 0.5 {
		t.Fatalf("retune stored %g/%g", f.Frequency(), f.Resonance())
	}
	f.Retune(1e6, -1)
	if f.Frequency() != float32(sr)/2*maxNyquistRatio || f.Resonance() != 0 {
		t.Fatalf("retune did not clamp: %g/%g", f.Frequency(), f.Resonance())
	}
}

func TestRetuneKeepsConfiguredBandwidth(t *testing.T) {
	for _, kind := range []Kind{BandPass, Notch} {
		cfg := DefaultConfig(kind, sr)
		cfg.Frequency = 1000
		cfg.Bandwidth = 400
		f := mustCompile(t, cfg)
		want := f.Coefficients()

		f.Retune(100, 0)
		if got := f.Bandwidth(); math.Abs(float64(got)-80) > 1e-3 {
			t.Errorf("%s: bandwidth at 100Hz = %g, want 80", kind, got)
		}
		if f.ConfiguredBandwidth() != 400 {
			t.Errorf("%s: configured bandwidth = %g", kind, f.ConfiguredBandwidth())
		}

		f.Retune(1000, 0)
		if f.Bandwidth() != 400 {
			t.Errorf("%s: bandwidth after retuning back = %g, want 400", kind, f.Bandwidth())
		}
		if f.Coefficients() != want {
			t.Errorf("%s: coefficients %+v, want %+v", kind, f.Coefficients(), want)
		}
	}
}

func TestRetuneIgnoresNonFiniteResonance(t *testing.T) {
	for _, kind := range allKinds {
		f := mustCompile(t, DefaultConfig(kind, sr))
		want := f.Coefficients()
		for _, res := range []float64{math.NaN(), math.Inf(1), -1} {
			f.Retune(DefaultFrequency, float32(res))
			if f.Resonance() != 0 || f.Coefficients() != want {
				t.Errorf("%s: resonance %g gave %g %+v", kind, res, f.Resonance(), f.Coefficients())
			}
		}
	}
}

func TestCompileRejectsInvalid(t *testing.T) {
	bad := []Config{
		{Kind: LowPass, Frequency: 1000, Mix: 1.5, SampleRate: sr},
		{Kind: LowPass, Frequency: 1000, Mix: -0.1, SampleRate: sr},
		{Kind: Kind(9), Frequency: 1000, Mix: 1, SampleRate: sr},
		{Kind: Notch, Frequency: 1000, Mix: 1, SampleRate: 0},
		{Kind: HighPass, Frequency: 1000, Mix: 1, Resonance: -1, SampleRate: sr},
	}
	for i, cfg := range bad {
		if _, err := cfg.Compile(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}

func TestStereoFiltersChannelsIndependently(t *testing.T) {
	s, err := NewStereo(DefaultConfig(LowPass, sr))
	if err != nil {
		t.Fatalf("NewStereo: %v", err)
	}
	mono := mustCompile(t, DefaultConfig(LowPass, sr))
	for i, x := range testSignal(128) {
		l, r := s.Process(x, 0)
		want := mono.Apply(x, 0)
		if l != want || r != 0 {
			t.Fatalf("frame %d: l=%g r=%g want l=%g r=0", i, l, r, want)
		}
	}
}

func BenchmarkLowPassApply(b *testing.B) {
	f, _ := DefaultConfig(LowPass, sr).Compile()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		f.Apply(0.25, 0)
	}
}
