package audio

import (
	"fmt"
	"strings"
)

const (
	Channels      = 2
	bytesPerFrame = Channels * 4
)

// Backend is a running output stream. Ready reports whether a device is
// consuming the stream.
type Backend interface {
	Name() string
	Play()
	Pause()
	IsPlaying() bool
	Ready() bool
	Close() error
}

// Kind selects an output backend.
type Kind string

const (
	KindEbiten Kind = "ebiten"
	KindOto    Kind = "oto"
	KindSilent Kind = "silent"
)

// ParseKind reads a backend name. The empty string selects ebiten.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindEbiten:
		return KindEbiten, nil
	case KindOto:
		return KindOto, nil
	case KindSilent, "none":
		return KindSilent, nil
	}
	return "", fmt.Errorf("unknown audio backend %q", s)
}

// Open creates a paused backend of kind pulling from source. Device errors
// are returned so the caller can fall back to NewSilentBackend.
func Open(kind Kind, sampleRate int, source SampleSource) (Backend, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate %d must be positive", sampleRate)
	}
	switch kind {
	case KindEbiten, "":
		return NewEbitenBackend(sampleRate, source)
	case KindOto:
		return NewOtoBackend(sampleRate, source)
	case KindSilent:
		return NewSilentBackend(sampleRate, source, DefaultSilentPeriodFrames), nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", kind)
}
