// Package rosco is a real-time step synthesizer: an 8-track by 16-step grid
// rendered by a lock-free audio callback and edited live through a bounded
// update queue.
package rosco

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	intaudio "github.com/roscosynth/rosco/internal/audio"
	intcfg "github.com/roscosynth/rosco/internal/config"
	intctl "github.com/roscosynth/rosco/internal/control"
	intfx "github.com/roscosynth/rosco/internal/effects"
	inteng "github.com/roscosynth/rosco/internal/engine"
	intscale "github.com/roscosynth/rosco/internal/scale"
	intstate "github.com/roscosynth/rosco/internal/state"
	intwave "github.com/roscosynth/rosco/internal/waveform"
)

var ErrClosed = errors.New("engine closed")

// deviceReadyTimeout is how long a device backend may take to come up
// before the engine warns that output may be going nowhere.
const deviceReadyTimeout = 2 * time.Second

type EngineOption func(*engineConfig)

type engineConfig struct {
	logger    *slog.Logger
	backend   string
	sampleTap func([]float32)
}

// WithLogger sets the logger used by the engine and its worker.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(cfg *engineConfig) {
		cfg.logger = logger
	}
}

// WithBackend overrides the configured output backend ("ebiten", "oto" or
// "silent").
func WithBackend(name string) EngineOption {
	return func(cfg *engineConfig) {
		cfg.backend = name
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) EngineOption {
	return func(cfg *engineConfig) {
		cfg.sampleTap = tap
	}
}

type Engine struct {
	mu         sync.Mutex
	sampleRate int
	logger     *slog.Logger
	state      *intstate.AudioState
	tables     *intwave.Tables
	driver     *inteng.Driver
	masterEQ   *intfx.EQ5Band
	queue      *intctl.Queue
	cancel     context.CancelFunc
	workerDone chan struct{}
	audio      intaudio.Backend
	readyCheck *time.Timer
	silent     bool
	closed     bool
}

// NewEngine builds the shared state from cfg, starts the update worker and
// opens the output stream. When the device cannot be opened the engine logs
// a warning and runs in silent mode.
func NewEngine(cfg intcfg.Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ec := engineConfig{backend: cfg.Backend}
	for _, opt := range opts {
		opt(&ec)
	}
	if ec.logger == nil {
		logger, err := intcfg.NewLogger(cfg.LogLevel, os.Stderr)
		if err != nil {
			return nil, err
		}
		ec.logger = logger
	}
	kind, err := intaudio.ParseKind(ec.backend)
	if err != nil {
		return nil, err
	}

	s := intstate.New()
	applyConfig(s, cfg)
	eq, err := intfx.NewEQ5Band(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("master eq: %w", err)
	}
	for band, g := range cfg.MasterEQ {
		eq.SetGain(band, g)
	}
	tables := intwave.NewTables(cfg.SampleRate)
	driverOpts := []inteng.Option{inteng.WithEQ(eq)}
	if ec.sampleTap != nil {
		driverOpts = append(driverOpts, inteng.WithTap(ec.sampleTap))
	}
	driver, err := inteng.New(s, tables, cfg.SampleRate, driverOpts...)
	if err != nil {
		return nil, fmt.Errorf("master bus: %w", err)
	}

	e := &Engine{
		sampleRate: cfg.SampleRate,
		logger:     ec.logger,
		state:      s,
		tables:     tables,
		driver:     driver,
		masterEQ:   eq,
		queue:      intctl.NewQueue(cfg.QueueSize, ec.logger),
		workerDone: make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	worker := intctl.NewWorker(e.queue, s, eq, ec.logger)
	go func() {
		defer close(e.workerDone)
		_ = worker.Run(ctx)
	}()

	backend, err := intaudio.Open(kind, cfg.SampleRate, driver)
	if err != nil {
		e.logger.Warn("audio device unavailable, running silent", "backend", kind, "err", err)
		backend = intaudio.NewSilentBackend(cfg.SampleRate, driver, intaudio.DefaultSilentPeriodFrames)
		e.silent = true
	} else if kind == intaudio.KindSilent {
		e.silent = true
	}
	e.audio = backend
	e.audio.Play()
	if !e.silent {
		e.readyCheck = time.AfterFunc(deviceReadyTimeout, e.checkDevice)
	}
	e.logger.Info("engine started", "backend", backend.Name(), "sample_rate", cfg.SampleRate)
	return e, nil
}

func applyConfig(s *intstate.AudioState, cfg intcfg.Config) {
	s.SetTempo(cfg.Tempo)
	s.SetOscWaveform(cfg.Waveform())
	s.SetOscVolume(cfg.Oscillator.Volume)
	s.SetFilterCutoff(cfg.Filter.Cutoff)
	s.SetFilterResonance(cfg.Filter.Resonance)
	s.SetAttack(cfg.Envelope.Attack)
	s.SetDecay(cfg.Envelope.Decay)
	s.SetSustain(cfg.Envelope.Sustain)
	s.SetRelease(cfg.Envelope.Release)
}

// State is the shared grid. Reads are safe from any goroutine; writes should
// go through Send.
func (e *Engine) State() *intstate.AudioState { return e.state }

func (e *Engine) SampleRate() int { return e.sampleRate }

// Tables are the waveform tables the driver reads, for building LFOs that
// stay in phase with the grid.
func (e *Engine) Tables() *intwave.Tables { return e.tables }

// Silent reports whether output is discarded because the silent backend was
// selected or the device failed to open. ebiten never reports a failure to
// open its device, so Silent can be false with no device present; use
// DeviceReady for that.
func (e *Engine) Silent() bool { return e.silent }

// DeviceReady reports whether an output device is consuming the stream.
func (e *Engine) DeviceReady() bool { return e.audio.Ready() }

func (e *Engine) checkDevice() {
	if !e.audio.Ready() {
		e.logger.Warn("audio device not ready, output may be silent",
			"backend", e.audio.Name(), "waited", deviceReadyTimeout)
	}
}

// Backend names the output in use.
func (e *Engine) Backend() string { return e.audio.Name() }

// Send enqueues an update without blocking.
func (e *Engine) Send(u intctl.Update) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return e.queue.TrySend(u)
}

func (e *Engine) Play() error   { return e.Send(intctl.TransportPlay{}) }
func (e *Engine) Stop() error   { return e.Send(intctl.TransportStop{}) }
func (e *Engine) Rewind() error { return e.Send(intctl.TransportRewind{}) }

func (e *Engine) SetTempo(bpm float32) error {
	return e.Send(intctl.TempoChange{BPM: bpm})
}

// ToggleStep flips a step immediately and returns its new value.
func (e *Engine) ToggleStep(track, step int) (bool, error) {
	if intstate.Index(track, step) < 0 {
		return false, fmt.Errorf("step %d/%d outside grid", track, step)
	}
	return e.state.ToggleStep(track, step), nil
}

// SetStepPitch tunes a step to pitch in octave.
func (e *Engine) SetStepPitch(track, step int, pitch intscale.Pitch, octave int) error {
	return e.Send(intctl.StepFrequency{Track: track, Step: step, Hz: pitch.Frequency(octave)})
}

// SetMasterEQ sets the gain for a master EQ band (0-4). 1.0 = unity.
// Band frequencies: 0=<200Hz, 1=200-800Hz, 2=800-2.5kHz, 3=2.5-8kHz, 4=>8kHz.
func (e *Engine) SetMasterEQ(band int, gain float32) error {
	return e.Send(intctl.MasterEQ{Band: band, Gain: gain})
}

// MasterEQ returns the current gain for a master EQ band (0-4).
func (e *Engine) MasterEQ(band int) float32 {
	return e.masterEQ.Gain(band)
}

// Close stops the stream, then stops the worker. Pending updates are
// discarded.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	if e.readyCheck != nil {
		e.readyCheck.Stop()
	}
	err := e.audio.Close()
	e.cancel()
	<-e.workerDone
	e.queue.Close()
	e.logger.Info("engine closed")
	return err
}
