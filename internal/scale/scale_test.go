package scale

import (
	"math"
	"testing"
)

func near(a, b float32, tol float64) bool {
	return math.Abs(float64(a-b)) <= tol
}

func TestPitchFrequencies(t *testing.T) {
	cases := []struct {
		p      Pitch
		octave int
		want   float32
	}{
		{A, 4, 440},
		{C, 4, 261.63},
		{E, 4, 329.63},
		{G, 5, 783.99},
		{A, 0, 27.5},
		{CSharp, 4, 277.18},
		{DFlat, 4, 277.18},
	}
	for _, tc := range cases {
		if got := tc.p.Frequency(tc.octave); !near(got, tc.want, 0.01) {
			t.Errorf("%s%d = %f, want %f", tc.p, tc.octave, got, tc.want)
		}
	}
}

func TestNextPreviousWrap(t *testing.T) {
	if B.Next() != C {
		t.Errorf("B.Next = %s", B.Next())
	}
	if C.Previous() != B {
		t.Errorf("C.Previous = %s", C.Previous())
	}
	if EFlat.Next() != E {
		t.Errorf("Eb.Next = %s", EFlat.Next())
	}
	p := C
	for i := 0; i < 12; i++ {
		p = p.Next()
	}
	if p != C {
		t.Errorf("12 steps from C landed on %s", p)
	}
}

func TestParsePitch(t *testing.T) {
	for in, want := range map[string]Pitch{"C": C, "f#": FSharp, "Bb": BFlat, " a ": A, "b": B} {
		got, err := ParsePitch(in)
		if err != nil || got != want {
			t.Errorf("ParsePitch(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParsePitch("H"); err == nil {
		t.Error("expected error for H")
	}
}

func TestScaleFrequencies(t *testing.T) {
	major := Major.Frequencies(200)
	if len(major) != 7 || !near(major[4], 300, 1e-3) || !near(major[6], 375, 1e-3) {
		t.Errorf("major on 200 = %v", major)
	}
	chrom := ChromaticScale.Frequencies(440)
	if len(chrom) != 12 || !near(chrom[3], 523.25, 0.01) {
		t.Errorf("chromatic on 440 = %v", chrom)
	}
	if n := len(Pentatonic.Frequencies(100)); n != 5 {
		t.Errorf("pentatonic has %d notes", n)
	}
}
