// Package config loads the engine configuration from YAML and resolves the
// logger it asks for.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/roscosynth/rosco/internal/audio"
	"github.com/roscosynth/rosco/internal/effects"
	"github.com/roscosynth/rosco/internal/state"
	"github.com/roscosynth/rosco/internal/waveform"
)

var ErrInvalid = errors.New("invalid config")

const (
	DefaultSampleRate = 44100
	DefaultLogLevel   = "info"
	DefaultPath       = "~/.config/rosco/config.yaml"
)

type Oscillator struct {
	Waveform string  `yaml:"waveform"`
	Volume   float32 `yaml:"volume"`
}

type Filter struct {
	Cutoff    float32 `yaml:"cutoff"`
	Resonance float32 `yaml:"resonance"`
}

type Envelope struct {
	Attack  float32 `yaml:"attack"`
	Decay   float32 `yaml:"decay"`
	Sustain float32 `yaml:"sustain"`
	Release float32 `yaml:"release"`
}

type Config struct {
	SampleRate int        `yaml:"sample_rate"`
	Backend    string     `yaml:"backend"`
	LogLevel   string     `yaml:"log_level"`
	QueueSize  int        `yaml:"queue_size"`
	Tempo      float32    `yaml:"tempo"`
	Oscillator Oscillator `yaml:"oscillator"`
	Filter     Filter     `yaml:"filter"`
	Envelope   Envelope   `yaml:"envelope"`
	MasterEQ   []float32  `yaml:"master_eq,omitempty"`
}

// Default mirrors the shared state defaults.
func Default() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		Backend:    string(audio.KindEbiten),
		LogLevel:   DefaultLogLevel,
		QueueSize:  256,
		Tempo:      state.DefaultTempo,
		Oscillator: Oscillator{Waveform: waveform.Sine.String(), Volume: state.DefaultOscVolume},
		Filter:     Filter{Cutoff: state.DefaultCutoff, Resonance: state.DefaultResonance},
		Envelope: Envelope{
			Attack:  state.DefaultAttack,
			Decay:   state.DefaultDecay,
			Sustain: state.DefaultSustain,
			Release: state.DefaultRelease,
		},
	}
}

// Validate reports the first problem found, wrapped in ErrInvalid.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate %d", ErrInvalid, c.SampleRate)
	}
	if _, err := audio.ParseKind(c.Backend); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := ResolveLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue_size %d", ErrInvalid, c.QueueSize)
	}
	if !(c.Tempo > 0) {
		return fmt.Errorf("%w: tempo %g", ErrInvalid, c.Tempo)
	}
	if _, ok := waveform.ParseKind(c.Oscillator.Waveform); !ok {
		return fmt.Errorf("%w: waveform %q", ErrInvalid, c.Oscillator.Waveform)
	}
	if !(c.Oscillator.Volume >= 0 && c.Oscillator.Volume <= 1) {
		return fmt.Errorf("%w: oscillator volume %g outside [0,1]", ErrInvalid, c.Oscillator.Volume)
	}
	if !(c.Filter.Cutoff > 0) || !(c.Filter.Resonance >= 0) {
		return fmt.Errorf("%w: filter cutoff %g resonance %g", ErrInvalid, c.Filter.Cutoff, c.Filter.Resonance)
	}
	e := c.Envelope
	if !(e.Attack >= 0 && e.Decay >= 0 && e.Release >= 0 && e.Attack+e.Decay+e.Release <= 1) {
		return fmt.Errorf("%w: envelope segments %g/%g/%g", ErrInvalid, e.Attack, e.Decay, e.Release)
	}
	if !(e.Sustain >= 0 && e.Sustain <= 1) {
		return fmt.Errorf("%w: sustain %g outside [0,1]", ErrInvalid, e.Sustain)
	}
	if len(c.MasterEQ) > effects.EQBands {
		return fmt.Errorf("%w: %d master_eq bands, at most %d", ErrInvalid, len(c.MasterEQ), effects.EQBands)
	}
	for i, g := range c.MasterEQ {
		if !(g >= 0 && g <= effects.MaxEQGain) {
			return fmt.Errorf("%w: master_eq[%d] = %g", ErrInvalid, i, g)
		}
	}
	return nil
}

// Waveform returns the parsed oscillator waveform, Sine if unknown.
func (c Config) Waveform() waveform.Kind {
	k, _ := waveform.ParseKind(c.Oscillator.Waveform)
	return k
}

// Resolve expands a leading ~ in path. An empty path resolves DefaultPath.
func Resolve(path string) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	return homedir.Expand(path)
}

// Load reads path over the defaults and validates the result. Keys absent
// from the file keep their default.
func Load(path string) (Config, error) {
	p, err := Resolve(path)
	if err != nil {
		return Config{}, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, p, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", p, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	p, err := Resolve(path)
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o644)
}

func ResolveLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// NewLogger builds a text logger writing to w at the given level.
func NewLogger(level string, w io.Writer) (*slog.Logger, error) {
	logLevel, err := ResolveLogLevel(level)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	return slog.New(handler), nil
}
