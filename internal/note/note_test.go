package note

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/roscosynth/rosco/internal/effects"
	"github.com/roscosynth/rosco/internal/envelope"
	"github.com/roscosynth/rosco/internal/filter"
	"github.com/roscosynth/rosco/internal/samplefile"
	"github.com/roscosynth/rosco/internal/waveform"
)

const sr = 44100

func TestSampledNoteOverrunReturnsZero(t *testing.T) {
	s := NewSampledNote("", []float32{0.1, 0.2, 0.3})
	for i, want := range []float32{0.1, 0.2, 0.3} {
		if got := s.Next(); got != want {
			t.Fatalf("Next #%d = %f, want %f", i, got, want)
		}
	}
	for i := 0; i < 5; i++ {
		if got := s.Next(); got != 0 {
			t.Fatalf("overrun #%d = %f, want 0", i, got)
		}
	}
	if s.Index() != s.Len() {
		t.Fatalf("cursor %d moved past buffer size %d", s.Index(), s.Len())
	}
	s.Rewind()
	if got := s.Next(); got != 0.1 {
		t.Fatalf("after rewind = %f", got)
	}
}

func TestSampledNoteTransforms(t *testing.T) {
	s := NewSampledNote("x", []float32{0, 1, 2, 3, 4, 5, 6})
	parts := s.Chopped(3)
	if len(parts) != 3 {
		t.Fatalf("chopped into %d", len(parts))
	}
	if parts[1].Len() != 2 || parts[1].SampleAt(0) != 2 || parts[1].SampleAt(1) != 3 {
		t.Fatalf("segment 1 = %v,%v", parts[1].SampleAt(0), parts[1].SampleAt(1))
	}
	parts[0].Reverse()
	if s.SampleAt(0) != 0 {
		t.Fatal("chopped segment shares storage with the source")
	}

	st := NewSampledNote("", []float32{0, 1}).Stretched(4)
	want := []float32{0, 0.25, 0.5, 0.75, 1, 1, 1, 1}
	if st.Len() != len(want) {
		t.Fatalf("stretched len = %d", st.Len())
	}
	for i, w := range want {
		if st.SampleAt(i) != w {
			t.Fatalf("stretched[%d] = %f, want %f", i, st.SampleAt(i), w)
		}
	}

	r := NewSampledNote("", []float32{1, 2, 3})
	r.Reverse()
	r.Append(9)
	if r.SampleAt(0) != 3 || r.SampleAt(3) != 9 || r.SampleAt(10) != 0 {
		t.Fatalf("reverse/append gave %v %v", r.SampleAt(0), r.SampleAt(3))
	}
}

func TestLoadSampledNote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hit.wav")
	if err := samplefile.SaveWAV(path, []float32{0.5, -0.5, 0.25}, sr, 1); err != nil {
		t.Fatalf("SaveWAV: %v", err)
	}
	s, err := LoadSampledNote(path, sr)
	if err != nil {
		t.Fatalf("LoadSampledNote: %v", err)
	}
	if s.Len() != 3 || s.Path != path {
		t.Fatalf("loaded %d samples from %q", s.Len(), s.Path)
	}
	if math.Abs(float64(s.Next())-0.5) > 1e-3 {
		t.Fatal("first sample mismatch")
	}
}

// 16 quarter notes at 120 BPM is 8 seconds.
func sineNote() *PlaybackNote {
	return FromNote(NewNote(440, 1, 0, 16*500, waveform.Sine), sr)
}

func TestNoEffectsReturnsRawSample(t *testing.T) {
	tables := waveform.NewTables(sr)
	p := sineNote()
	if p.SampleEnd != 8*sr {
		t.Fatalf("sample end = %d, want %d", p.SampleEnd, 8*sr)
	}
	for _, count := range []uint64{0, 1, 17, 100, 22050, 300000} {
		raw := tables.Sample(waveform.Sine, 440, count)
		if got := p.ApplyEffects(raw, Position(count, sr), count); got != raw {
			t.Fatalf("ApplyEffects at %d = %f, want %f", count, got, raw)
		}
		l, r := Resolve(p, tables, Position(count, sr), count)
		if l != raw || r != raw {
			t.Fatalf("Resolve at %d = (%f,%f), want %f", count, l, r, raw)
		}
	}
}

func TestMixClampsSum(t *testing.T) {
	tables := waveform.NewTables(sr)
	loud := func() *PlaybackNote {
		return FromNote(NewNote(441, 0.9, 0, 1000, waveform.Square), sr)
	}
	notes := []*PlaybackNote{loud(), loud()}
	var sawClip bool
	for count := uint64(0); count < 200; count++ {
		l, r := Mix(notes, tables, Position(count, sr), count)
		if l > 1 || l < -1 || r > 1 || r < -1 {
			t.Fatalf("mix escaped bound at %d: (%f,%f)", count, l, r)
		}
		if l == 1 || l == -1 {
			sawClip = true
		}
	}
	if !sawClip {
		t.Fatal("two 0.9 squares never reached the clip bound")
	}
}

func TestMixSkipsInactiveNotes(t *testing.T) {
	tables := waveform.NewTables(sr)
	early := FromNote(NewNote(441, 0.5, 0, 1, waveform.Square), sr)
	late := FromNote(NewNote(441, 0.5, 1000, 2000, waveform.Square), sr)
	notes := []*PlaybackNote{early, late}
	if l, _ := Mix(notes, tables, 0, 10); l != 0.5 {
		t.Fatalf("only early note should sound at 10, got %f", l)
	}
	if l, _ := Mix(notes, tables, 0, 500); l != 0 {
		t.Fatalf("gap should be silent, got %f", l)
	}
}

func TestEnvelopeUsesNoteProgress(t *testing.T) {
	env, err := envelope.New(
		envelope.Pair{Duration: 0.5, Level: 1},
		envelope.Pair{Duration: 0.5, Level: 0},
		envelope.Pair{},
		envelope.Pair{},
	)
	if err != nil {
		t.Fatal(err)
	}
	p := FromNote(NewNote(441, 1, 1000, 2000, waveform.Square), sr)
	p.Envelopes = []envelope.Envelope{env}
	start := p.SampleStart
	half := start + (p.SampleEnd-start)/2
	if got := p.ApplyEffects(1, 0, start); math.Abs(float64(got)) > 1e-6 {
		t.Errorf("gain at note start = %f, want 0", got)
	}
	if got := p.ApplyEffects(1, 0, half); math.Abs(float64(got)-1) > 1e-4 {
		t.Errorf("gain at note middle = %f, want 1", got)
	}
}

func TestEffectOrderEnvelopeBeforeDelay(t *testing.T) {
	// A fully wet delay echoes what the envelope let through. If the delay
	// ran first the envelope would scale the echo instead.
	d, err := effects.NewDelay(1000, effects.DelayConfig{Mix: 1, Decay: 1, IntervalMs: 2, NumRepeats: 1, NumConcurrentDelays: 1})
	if err != nil {
		t.Fatal(err)
	}
	env, _ := envelope.New(
		envelope.Pair{Duration: 0, Level: 1},
		envelope.Pair{Duration: 0.25, Level: 0},
		envelope.Pair{Duration: 0.75, Level: 0},
		envelope.Pair{},
	)
	p := &PlaybackNote{Type: Oscillator, NumChannels: 1, SampleStart: 0, SampleEnd: 8}
	p.Envelopes = []envelope.Envelope{env}
	p.Delays = []*effects.Delay{d}
	p.ApplyEffects(1, 0, 0) // gain 1
	p.ApplyEffects(0, 0, 1)
	if got := p.ApplyEffects(0, 0, 2); got != 1 {
		t.Fatalf("echo = %f, want 1", got)
	}
}

func TestSharedTrackEffectsShareHistory(t *testing.T) {
	d, _ := effects.NewDelay(1000, effects.DelayConfig{Mix: 1, Decay: 1, IntervalMs: 1, NumRepeats: 1, NumConcurrentDelays: 1})
	track := &TrackEffects{Delays: []*effects.Delay{d}, NumChannels: 1}
	a := &PlaybackNote{NumChannels: 1, Track: track, SampleEnd: 10}
	b := &PlaybackNote{NumChannels: 1, Track: track, SampleEnd: 10}
	a.ApplyEffects(0.7, 0, 0)
	if got := b.ApplyEffects(0, 0, 1); math.Abs(float64(got)-0.7) > 1e-6 {
		t.Fatalf("note b heard %f, want note a's 0.7 through the shared delay", got)
	}

	clone := track.Clone()
	c := &PlaybackNote{NumChannels: 1, Track: clone, SampleEnd: 10}
	a.ApplyEffects(0.4, 0, 2)
	if got := c.ApplyEffects(0, 0, 3); got != 0 {
		t.Fatalf("cloned track leaked history: %f", got)
	}
}

func TestStereoPanning(t *testing.T) {
	tables := waveform.NewTables(sr)
	p := FromNote(NewNote(441, 1, 0, 1000, waveform.Square), sr)
	p.NumChannels = 2
	p.SetPanning(1)
	l, r := Resolve(p, tables, 0, 10)
	if l != 0.5 || r != 1.5 {
		t.Fatalf("pan right = (%f,%f), want (0.5,1.5)", l, r)
	}
	p.SetPanning(-0.5)
	l, r = Resolve(p, tables, 0, 10)
	if l != 0.75 || r != 1.25 {
		t.Fatalf("negative pan = (%f,%f), want (0.75,1.25)", l, r)
	}
}

func TestTrackChannelsApplyToMonoNote(t *testing.T) {
	tables := waveform.NewTables(sr)
	track := &TrackEffects{NumChannels: 2, Panning: 1}
	p := FromNote(NewNote(441, 1, 0, 1000, waveform.Square), sr)
	p.Track = track
	l, r := Resolve(p, tables, 0, 10)
	if l != 0.5 || r != 1.5 {
		t.Fatalf("track stereo = (%f,%f), want (0.5,1.5)", l, r)
	}
}

func TestNotePanningOverridesTrack(t *testing.T) {
	tables := waveform.NewTables(sr)
	p := FromNote(NewNote(441, 1, 0, 1000, waveform.Square), sr)
	p.Track = &TrackEffects{NumChannels: 2, Panning: 1}

	p.SetPanning(0)
	if l, r := Resolve(p, tables, 0, 10); l != 1 || r != 1 {
		t.Fatalf("explicit centre on a panned track = (%f,%f), want (1,1)", l, r)
	}
	p.SetPanning(-1)
	if l, r := Resolve(p, tables, 0, 10); l != 0.5 || r != 1.5 {
		t.Fatalf("own pan = (%f,%f), want (0.5,1.5)", l, r)
	}
	p.InheritPanning()
	if l, r := Resolve(p, tables, 0, 10); l != 0.5 || r != 1.5 {
		t.Fatalf("inherited pan = (%f,%f), want (0.5,1.5)", l, r)
	}
}

func TestSampleNoteResolve(t *testing.T) {
	tables := waveform.NewTables(sr)
	s := NewSampledNote("", []float32{0.5, 0.25})
	s.Volume = 0.5
	p := FromSampled(s, sr)
	p.SampleEnd = 10
	want := []float32{0.25, 0.125, 0, 0}
	for i, w := range want {
		l, r := Resolve(p, tables, 0, uint64(i))
		if l != w || r != w {
			t.Fatalf("frame %d = (%f,%f), want %f", i, l, r, w)
		}
	}
}

func TestNoOpTrackFilterPassesThrough(t *testing.T) {
	cfg := filter.NoOpConfig(filter.LowPass, sr)
	f, err := cfg.Compile()
	if err != nil {
		t.Fatal(err)
	}
	track := &TrackEffects{Filters: []*filter.Filter{f}, NumChannels: 1}
	p := &PlaybackNote{NumChannels: 1, Track: track, SampleEnd: 10}
	if got := p.ApplyEffects(0.3, 0, 0); math.Abs(float64(got)-0.3) > 1e-6 {
		t.Fatalf("no-op track filter changed sample to %f", got)
	}
}

func BenchmarkResolve(b *testing.B) {
	tables := waveform.NewTables(sr)
	p := sineNote()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := uint64(i) % p.SampleEnd
		Resolve(p, tables, Position(c, sr), c)
	}
}
