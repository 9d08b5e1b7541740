package envelope

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestGainInterpolatesSegments(t *testing.T) {
	e, err := New(
		Pair{Duration: 0.2, Level: 1},
		Pair{Duration: 0.2, Level: 0.5},
		Pair{Duration: 0.4, Level: 0.5},
		Pair{Duration: 0.2, Level: 0},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := []struct {
		progress, want float32
	}{
		{0, 0},
		{0.1, 0.5},
		{0.2, 1},
		{0.3, 0.75},
		{0.4, 0.5},
		{0.6, 0.5},
		{0.9, 0.25},
		{1.0, 0},
		{1.5, 0},
		{-0.3, 0},
	}
	for _, tc := range cases {
		if got := e.Gain(tc.progress); !approx(got, tc.want) {
			t.Errorf("Gain(%g) = %g, want %g", tc.progress, got, tc.want)
		}
	}
}

func TestHoldsReleaseLevelWhenShort(t *testing.T) {
	e, err := New(
		Pair{Duration: 0.1, Level: 1},
		Pair{Duration: 0.1, Level: 0.6},
		Pair{Duration: 0.1, Level: 0.6},
		Pair{Duration: 0.1, Level: 0.3},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := e.Gain(0.7); !approx(got, 0.3) {
		t.Fatalf("past last segment = %g, want 0.3", got)
	}
}

func TestZeroLengthSegmentJumps(t *testing.T) {
	e, err := New(
		Pair{Duration: 0, Level: 1},
		Pair{Duration: 0.5, Level: 0},
		Pair{Duration: 0, Level: 0},
		Pair{Duration: 0, Level: 0},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := e.Gain(0); !approx(got, 1) {
		t.Fatalf("instant attack = %g, want 1", got)
	}
	if got := e.Gain(0.25); !approx(got, 0.5) {
		t.Fatalf("mid decay = %g, want 0.5", got)
	}
}

func TestNoOpIsUnity(t *testing.T) {
	e := NoOp()
	for _, p := range []float32{0, 0.3, 0.99, 1, 2} {
		if got := e.Apply(0.42, p); !approx(got, 0.42) {
			t.Errorf("NoOp.Apply at %g = %g", p, got)
		}
	}
}

func TestDefaultShape(t *testing.T) {
	e := Default()
	if got := e.Gain(0.05); !approx(got, 1) {
		t.Errorf("peak = %g, want 1", got)
	}
	if got := e.Gain(0.5); !approx(got, 0.8) {
		t.Errorf("sustain = %g, want 0.8", got)
	}
	if got := e.Gain(1); !approx(got, 0) {
		t.Errorf("end = %g, want 0", got)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	good := Pair{Duration: 0.25, Level: 0.5}
	cases := map[string][4]Pair{
		"negative duration": {{Duration: -0.1, Level: 1}, good, good, good},
		"level above one":   {{Duration: 0.1, Level: 1.5}, good, good, good},
		"negative level":    {good, {Duration: 0.1, Level: -0.1}, good, good},
		"sum above one":     {good, good, good, {Duration: 0.5, Level: 0}},
	}
	for name, p := range cases {
		if _, err := New(p[0], p[1], p[2], p[3]); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestNewRejectsNaN(t *testing.T) {
	nan := float32(math.NaN())
	good := Pair{Duration: 0.25, Level: 0.5}
	cases := map[string][4]Pair{
		"nan level":    {good, {Duration: 0.1, Level: nan}, good, good},
		"nan duration": {{Duration: nan, Level: 1}, good, good, good},
		"inf duration": {{Duration: float32(math.Inf(1)), Level: 1}, good, good, good},
	}
	for name, p := range cases {
		if _, err := New(p[0], p[1], p[2], p[3]); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestClampedMatchesNewWhenValid(t *testing.T) {
	a := Pair{Duration: 0.2, Level: 1}
	d := Pair{Duration: 0.2, Level: 0.5}
	s := Pair{Duration: 0.4, Level: 0.5}
	r := Pair{Duration: 0.2, Level: 0}
	want, err := New(a, d, s, r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := Clamped(a, d, s, r); got != want {
		t.Fatalf("Clamped = %+v, want %+v", got, want)
	}
}

func TestClampedRepairsBadInput(t *testing.T) {
	nan := float32(math.NaN())
	e := Clamped(
		Pair{Duration: 0.5, Level: 1.5},
		Pair{Duration: 0.5, Level: nan},
		Pair{Duration: -1, Level: -0.2},
		Pair{Duration: 1, Level: 0},
	)
	if e.Attack.Level != 1 || e.Decay.Level != 0 || e.Sustain.Level != 0 {
		t.Errorf("levels not clamped: %+v", e)
	}
	if e.Sustain.Duration != 0 {
		t.Errorf("negative duration kept: %g", e.Sustain.Duration)
	}
	total := e.Attack.Duration + e.Decay.Duration + e.Sustain.Duration + e.Release.Duration
	if !approx(total, 1) {
		t.Errorf("durations sum to %g, want 1", total)
	}
	if !approx(e.Attack.Duration, 0.25) || !approx(e.Release.Duration, 0.5) {
		t.Errorf("durations not scaled proportionally: %+v", e)
	}
	for _, p := range []float32{0, 0.1, 0.25, 0.5, 0.75, 1, 2} {
		g := e.Gain(p)
		if !(g >= 0 && g <= 1) {
			t.Errorf("Gain(%g) = %g", p, g)
		}
	}
}

func TestClampedDoesNotAllocate(t *testing.T) {
	v := float32(0.3)
	allocs := testing.AllocsPerRun(100, func() {
		v += 0.7
		_ = Clamped(Pair{Duration: v, Level: v}, Pair{Duration: v, Level: -v}, Pair{}, Pair{Duration: v})
	})
	if allocs != 0 {
		t.Fatalf("Clamped allocated %.1f times", allocs)
	}
}
