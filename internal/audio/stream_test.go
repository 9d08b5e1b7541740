package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

type rampSource struct{ next float32 }

func (s *rampSource) Process(dst []float32) {
	for i := range dst {
		dst[i] = s.next
		s.next += 0.25
	}
}

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	r := NewStreamReader(&rampSource{})
	p := make([]byte, 2*bytesPerFrame+3)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 2*bytesPerFrame {
		t.Fatalf("n = %d, want whole frames only", n)
	}
	for i := 0; i < 4; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if want := float32(i) * 0.25; got != want {
			t.Errorf("sample %d = %f, want %f", i, got, want)
		}
	}
}

func TestStreamReaderShortBuffer(t *testing.T) {
	r := NewStreamReader(&rampSource{})
	n, err := r.Read(make([]byte, 7))
	if n != 0 || err != nil {
		t.Fatalf("Read = %d, %v", n, err)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{"": KindEbiten, "OTO": KindOto, "silent": KindSilent, "none": KindSilent}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("jack"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestSilentBackendDrainsSource(t *testing.T) {
	var calls atomic.Int32
	src := SourceFunc(func(dst []float32) {
		if len(dst) != 64*Channels {
			t.Errorf("buffer length %d", len(dst))
		}
		calls.Add(1)
	})
	b, err := Open(KindSilent, 44100, src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sb := b.(*SilentBackend)
	sb.frames = 64
	sb.period = time.Millisecond

	b.Play()
	if !b.IsPlaying() {
		t.Fatal("not playing after Play")
	}
	if b.Ready() {
		t.Fatal("silent backend reports a device")
	}
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if calls.Load() < 3 {
		t.Fatalf("source processed %d times", calls.Load())
	}
	after := calls.Load()
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != after {
		t.Fatal("source processed after Close")
	}
	if b.IsPlaying() {
		t.Fatal("playing after Close")
	}
}

func TestOpenRejectsBadRate(t *testing.T) {
	if _, err := Open(KindSilent, 0, &rampSource{}); err == nil {
		t.Fatal("expected error")
	}
}
