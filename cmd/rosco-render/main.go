package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/roscosynth/rosco"
	intcfg "github.com/roscosynth/rosco/internal/config"
	intfx "github.com/roscosynth/rosco/internal/effects"
	intenv "github.com/roscosynth/rosco/internal/envelope"
	intfilter "github.com/roscosynth/rosco/internal/filter"
	intmeter "github.com/roscosynth/rosco/internal/meter"
	intnote "github.com/roscosynth/rosco/internal/note"
	intscale "github.com/roscosynth/rosco/internal/scale"
	intseq "github.com/roscosynth/rosco/internal/sequence"
	intstate "github.com/roscosynth/rosco/internal/state"
	intwave "github.com/roscosynth/rosco/internal/waveform"
)

func main() {
	var (
		out        = flag.String("out", "rosco.wav", "output WAV path")
		sampleRate = flag.Int("sample-rate", intcfg.DefaultSampleRate, "output sample rate")
		tempo      = flag.Float64("tempo", 120, "tempo in BPM")
		mode       = flag.String("mode", "sequence", "what to render: sequence|grid")
		seconds    = flag.Float64("seconds", 8, "grid mode: seconds to render")
		samplePath = flag.String("sample", "", "sequence mode: WAV or MP3 to play on a drum track")
		compress   = flag.Bool("compress", false, "run the master bus compressor")
		logLevel   = flag.String("log-level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	logger, err := intcfg.NewLogger(*logLevel, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(logger, *out, *sampleRate, float32(*tempo), *mode, *seconds, *samplePath, *compress); err != nil {
		logger.Error("render failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, out string, sampleRate int, tempo float32, mode string, seconds float64, samplePath string, compress bool) error {
	var (
		samples []float32
		err     error
	)
	switch mode {
	case "sequence":
		var seq *intseq.Sequence
		seq, err = demoSequence(sampleRate, tempo, samplePath)
		if err != nil {
			return err
		}
		samples, err = rosco.RenderSequence(seq, sampleRate)
	case "grid":
		samples, err = rosco.RenderGrid(demoGrid(tempo), sampleRate, seconds)
	default:
		return fmt.Errorf("invalid -mode %q (expected sequence|grid)", mode)
	}
	if err != nil {
		return err
	}

	if compress {
		comp, err := intfx.NewCompressor(sampleRate, intfx.DefaultCompressorConfig())
		if err != nil {
			return err
		}
		intfx.NewChain(comp).ProcessBuffer(samples)
		for i, v := range samples {
			samples[i] = max(-1, min(1, v))
		}
	}

	lv := intmeter.Measure(samples)
	logger.Info("rendered",
		"mode", mode,
		"frames", len(samples)/2,
		"peak_db", fmt.Sprintf("%.1f/%.1f", intmeter.DB(lv.PeakL), intmeter.DB(lv.PeakR)),
		"rms_db", fmt.Sprintf("%.1f/%.1f", intmeter.DB(lv.RMSL), intmeter.DB(lv.RMSR)),
	)
	if err := rosco.WriteWAV(out, samples, sampleRate); err != nil {
		return err
	}
	logger.Info("wrote", "path", out)
	return nil
}

// demoSequence is a two bar phrase exercising every per-track effect.
func demoSequence(sampleRate int, tempo float32, samplePath string) (*intseq.Sequence, error) {
	tables := intwave.NewTables(sampleRate)

	lead := intseq.NewTrack("lead", tempo, intseq.Eighth, 16)
	notes := intscale.Major.Frequencies(intscale.C.Frequency(4))
	for i := 0; i < 16; i += 2 {
		lead.AddOscillator(i, notes[(i/2)%len(notes)], 0.6, intwave.Sine, intwave.Triangle)
	}
	tremolo, err := intfx.NewLFO(tables, 5, 0.3, intwave.NewSet(intwave.Sine))
	if err != nil {
		return nil, err
	}
	echo, err := intfx.NewDelay(sampleRate, intfx.DefaultDelayConfig())
	if err != nil {
		return nil, err
	}
	lp := intfilter.DefaultConfig(intfilter.LowPass, sampleRate)
	lp.Frequency = 2400
	lpf, err := lp.Compile()
	if err != nil {
		return nil, err
	}
	lead.Effects = &intnote.TrackEffects{
		Envelopes:   []intenv.Envelope{intenv.Default()},
		LFOs:        []*intfx.LFO{tremolo},
		Delays:      []*intfx.Delay{echo},
		Filters:     []*intfilter.Filter{lpf},
		Panning:     -0.3,
		NumChannels: 2,
	}

	bass := intseq.NewTrack("bass", tempo, intseq.Quarter, 8)
	for i, p := range []intscale.Pitch{intscale.C, intscale.C, intscale.F, intscale.G} {
		bass.AddOscillator(i*2, p.Frequency(2), 0.5, intwave.Saw)
	}
	flanger, err := intfx.NewFlanger(sampleRate/200, 0.5)
	if err != nil {
		return nil, err
	}
	pluck, err := intenv.New(
		intenv.Pair{Duration: 0.02, Level: 1},
		intenv.Pair{Duration: 0.3, Level: 0.4},
		intenv.Pair{Duration: 0.5, Level: 0.3},
		intenv.Pair{Duration: 0.18, Level: 0},
	)
	if err != nil {
		return nil, err
	}
	bass.Effects = &intnote.TrackEffects{
		Envelopes:   []intenv.Envelope{pluck},
		Flangers:    []*intfx.Flanger{flanger},
		Panning:     0.3,
		NumChannels: 2,
	}

	seq := &intseq.Sequence{Tracks: []*intseq.Track{lead, bass}}
	if samplePath != "" {
		hit, err := intnote.LoadSampledNote(samplePath, sampleRate)
		if err != nil {
			return nil, err
		}
		drums := intseq.NewTrack("drums", tempo, intseq.Quarter, 8)
		for i := 0; i < 8; i++ {
			drums.AddSample(i, hit, 0.8)
		}
		seq.Tracks = append(seq.Tracks, drums)
	}
	return seq, nil
}

// demoGrid fills the live grid with an arpeggio on two tracks.
func demoGrid(tempo float32) *intstate.AudioState {
	s := intstate.New()
	s.SetTempo(tempo)
	arp := []intscale.Pitch{intscale.C, intscale.E, intscale.G, intscale.B}
	for step := 0; step < intstate.NumSteps; step++ {
		if step%2 == 0 {
			s.SetStepEnabled(0, step, true)
			s.SetStepFrequency(0, step, arp[(step/2)%len(arp)].Frequency(4))
		}
		if step%4 == 0 {
			s.SetStepEnabled(1, step, true)
			s.SetStepFrequency(1, step, intscale.C.Frequency(2))
		}
	}
	s.SetTrackPan(0, -0.4)
	s.SetTrackPan(1, 0.4)
	s.SetOscWaveform(intwave.Triangle)
	return s
}
