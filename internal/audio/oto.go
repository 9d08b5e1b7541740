package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// otoBufferFrames is the device buffer length oto is asked for.
const otoBufferFrames = 4096

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
	otoSampleRate  int
)

// oto allows a single context per process.
func sharedOtoContext(sampleRate int) (*oto.Context, error) {
	otoContextOnce.Do(func() {
		otoSampleRate = sampleRate
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   otoBufferFrames * time.Second / time.Duration(sampleRate),
		})
		if err != nil {
			otoContextErr = err
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoContextErr != nil {
		return nil, otoContextErr
	}
	if otoSampleRate != sampleRate {
		return nil, fmt.Errorf("oto context already initialized at %d Hz (requested %d Hz)", otoSampleRate, sampleRate)
	}
	return otoContext, nil
}

// OtoBackend plays through an oto player.
type OtoBackend struct {
	mu     sync.Mutex
	player *oto.Player
	reader *StreamReader
}

func NewOtoBackend(sampleRate int, source SampleSource) (*OtoBackend, error) {
	ctx, err := sharedOtoContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	return &OtoBackend{player: ctx.NewPlayer(reader), reader: reader}, nil
}

func (b *OtoBackend) Name() string { return string(KindOto) }

// Ready is true once the player exists: the shared context waits for the
// device before any player is created.
func (b *OtoBackend) Ready() bool { return true }

func (b *OtoBackend) Play() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player != nil {
		b.player.Play()
	}
}

func (b *OtoBackend) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player != nil {
		b.player.Pause()
	}
}

func (b *OtoBackend) IsPlaying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.player != nil && b.player.IsPlaying()
}

func (b *OtoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		return nil
	}
	err := b.player.Close()
	b.player = nil
	return err
}
