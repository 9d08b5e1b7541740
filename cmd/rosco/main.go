package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/roscosynth/rosco"
	intcfg "github.com/roscosynth/rosco/internal/config"
	intctl "github.com/roscosynth/rosco/internal/control"
	intmeter "github.com/roscosynth/rosco/internal/meter"
	intscale "github.com/roscosynth/rosco/internal/scale"
	intstate "github.com/roscosynth/rosco/internal/state"
	intwave "github.com/roscosynth/rosco/internal/waveform"
)

const help = "space play/stop  r rewind  hjkl move  x toggle  p/P pitch  w waveform  +/- tempo  [/] cutoff  q quit"

type cell struct {
	pitch  intscale.Pitch
	octave int
}

type ui struct {
	engine *rosco.Engine
	track  int
	step   int
	cells  [intstate.NumTracks][intstate.NumSteps]cell
}

func main() {
	var (
		configPath = flag.String("config", intcfg.DefaultPath, "path to the YAML config")
		backend    = flag.String("backend", "", "audio backend: ebiten|oto|silent (overrides config)")
		logLevel   = flag.String("log-level", "", "debug|info|warn|error (overrides config)")
		sampleRate = flag.Int("sample-rate", 0, "output sample rate (overrides config)")
	)
	flag.Parse()

	cfg, err := intcfg.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *sampleRate > 0 {
		cfg.SampleRate = *sampleRate
	}

	eng, err := rosco.NewEngine(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	u := &ui{engine: eng}
	for t := range u.cells {
		for s := range u.cells[t] {
			u.cells[t][s] = cell{pitch: intscale.C, octave: 4}
		}
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err != nil {
			log.Fatal(err)
		}
		defer term.Restore(fd, old)
	}

	fmt.Print(help + "\r\n")
	done := make(chan struct{})
	go u.display(done)
	u.readKeys(bufio.NewReader(os.Stdin))
	close(done)
	fmt.Print("\r\n")
}

func (u *ui) readKeys(r *bufio.Reader) {
	s := u.engine.State()
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		var sendErr error
		switch b {
		case 'q', 3: // ctrl-c in raw mode
			return
		case ' ':
			if s.Playing() {
				sendErr = u.engine.Stop()
			} else {
				sendErr = u.engine.Play()
			}
		case 'r':
			sendErr = u.engine.Rewind()
		case 'h':
			u.step = (u.step + intstate.NumSteps - 1) % intstate.NumSteps
		case 'l':
			u.step = (u.step + 1) % intstate.NumSteps
		case 'k':
			u.track = (u.track + intstate.NumTracks - 1) % intstate.NumTracks
		case 'j':
			u.track = (u.track + 1) % intstate.NumTracks
		case 'x':
			_, sendErr = u.engine.ToggleStep(u.track, u.step)
		case 'p', 'P':
			c := &u.cells[u.track][u.step]
			if b == 'p' {
				if c.pitch == intscale.B {
					c.octave++
				}
				c.pitch = c.pitch.Next()
			} else {
				if c.pitch == intscale.C {
					c.octave--
				}
				c.pitch = c.pitch.Previous()
			}
			c.octave = max(0, min(c.octave, intscale.MaxOctave))
			sendErr = u.engine.SetStepPitch(u.track, u.step, c.pitch, c.octave)
		case 'w':
			next := (s.OscWaveform() + 1) % (intwave.GaussianNoise + 1)
			sendErr = u.engine.Send(intctl.OscillatorWaveform{Kind: next})
		case '+', '=':
			sendErr = u.engine.SetTempo(s.Tempo() + 5)
		case '-':
			sendErr = u.engine.SetTempo(max(5, s.Tempo()-5))
		case ']':
			sendErr = u.engine.Send(intctl.FilterCutoff{Hz: s.FilterCutoff() * 1.25})
		case '[':
			sendErr = u.engine.Send(intctl.FilterCutoff{Hz: s.FilterCutoff() / 1.25})
		}
		if sendErr != nil {
			fmt.Printf("\r\n%v\r\n", sendErr)
		}
	}
}

func (u *ui) display(done <-chan struct{}) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	s := u.engine.State()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		var row strings.Builder
		for step := 0; step < intstate.NumSteps; step++ {
			ch := byte('.')
			if s.StepEnabled(u.track, step) {
				ch = 'x'
			}
			if step == s.CurrentStep() && s.Playing() {
				ch = '|'
			}
			if step == u.step {
				row.WriteByte('[')
				row.WriteByte(ch)
				row.WriteByte(']')
				continue
			}
			row.WriteByte(' ')
			row.WriteByte(ch)
			row.WriteByte(' ')
		}
		c := u.cells[u.track][u.step]
		l, r := s.Peaks()
		fmt.Printf("\rT%d %s %s%d %3.0fbpm %-8s %6.0fHz L%s R%s%s\x1b[K",
			u.track+1, row.String(), c.pitch, c.octave, s.Tempo(), s.OscWaveform(), s.FilterCutoff(),
			dbString(l), dbString(r), silentTag(u.engine))
	}
}

func dbString(v float32) string {
	db := intmeter.DB(v)
	if math.IsInf(db, -1) || db < -60 {
		return "  -inf"
	}
	return fmt.Sprintf("%6.1f", db)
}

func silentTag(e *rosco.Engine) string {
	if e.Silent() {
		return " (silent)"
	}
	if !e.DeviceReady() {
		return " (no device yet)"
	}
	return ""
}
