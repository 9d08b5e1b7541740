package audio

import (
	"fmt"
	"io"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// EbitenBackend plays through ebiten's shared audio context. ebiten opens
// the device asynchronously and never reports a failure to open it, so a
// backend may be created and playing with no device behind it. Ready tells
// the two apart.
type EbitenBackend struct {
	ctx    *ebitaudio.Context
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewEbitenBackend(sampleRate int, source SampleSource) (*EbitenBackend, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &EbitenBackend{ctx: ctx, player: pl, reader: reader}, nil
}

func (b *EbitenBackend) Name() string    { return string(KindEbiten) }
func (b *EbitenBackend) Play()           { b.player.Play() }
func (b *EbitenBackend) Pause()          { b.player.Pause() }
func (b *EbitenBackend) IsPlaying() bool { return b.player.IsPlaying() }

// Ready reports whether ebiten's device has come up.
func (b *EbitenBackend) Ready() bool { return b.ctx.IsReady() }

func (b *EbitenBackend) Close() error {
	b.player.Pause()
	if err := b.player.Close(); err != nil {
		return err
	}
	return b.reader.Close()
}
