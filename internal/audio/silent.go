package audio

import (
	"sync"
	"time"
)

// DefaultSilentPeriodFrames is the buffer the silent backend renders per tick.
const DefaultSilentPeriodFrames = 1024

// SilentBackend drains its source on a ticker at the real-time rate and
// discards the output. It keeps the transport clock running when no device
// is available.
type SilentBackend struct {
	source SampleSource
	frames int
	period time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	playing bool
}

func NewSilentBackend(sampleRate int, source SampleSource, periodFrames int) *SilentBackend {
	if periodFrames <= 0 {
		periodFrames = DefaultSilentPeriodFrames
	}
	return &SilentBackend{
		source: source,
		frames: periodFrames,
		period: time.Duration(periodFrames) * time.Second / time.Duration(sampleRate),
	}
}

func (b *SilentBackend) Name() string { return string(KindSilent) }

func (b *SilentBackend) Play() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.playing {
		return
	}
	b.playing = true
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.run(b.stop, b.done)
}

func (b *SilentBackend) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	buf := make([]float32, b.frames*Channels)
	ticker := time.NewTicker(b.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.source.Process(buf)
		}
	}
}

// Pause stops the ticker and waits for the in-flight buffer.
func (b *SilentBackend) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.playing {
		return
	}
	close(b.stop)
	<-b.done
	b.playing = false
}

// Ready is always false: nothing consumes the output.
func (b *SilentBackend) Ready() bool { return false }

func (b *SilentBackend) IsPlaying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}

func (b *SilentBackend) Close() error {
	b.Pause()
	return nil
}
