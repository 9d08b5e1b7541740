package rosco

import (
	"errors"

	inteng "github.com/roscosynth/rosco/internal/engine"
	intnote "github.com/roscosynth/rosco/internal/note"
	intsf "github.com/roscosynth/rosco/internal/samplefile"
	intseq "github.com/roscosynth/rosco/internal/sequence"
	intstate "github.com/roscosynth/rosco/internal/state"
	intwave "github.com/roscosynth/rosco/internal/waveform"
)

// RenderNotes mixes notes into frames of interleaved stereo starting at
// sample 0.
func RenderNotes(notes []*intnote.PlaybackNote, tables *intwave.Tables, frames int) []float32 {
	sampleRate := tables.SampleRate()
	out := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		count := uint64(i)
		out[2*i], out[2*i+1] = intnote.Mix(notes, tables, intnote.Position(count, sampleRate), count)
	}
	return out
}

// RenderSequence renders every track of seq for its full duration. Track
// effect histories are reset first so repeated renders are identical.
func RenderSequence(seq *intseq.Sequence, sampleRate int) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	seq.Reset()
	notes, err := seq.Notes(sampleRate)
	if err != nil {
		return nil, err
	}
	frames := int(intseq.SamplesForMs(seq.DurationMs(), sampleRate))
	return RenderNotes(notes, intwave.NewTables(sampleRate), frames), nil
}

// RenderGrid runs the live driver over s for the given duration without an
// output device. s is left playing.
func RenderGrid(s *intstate.AudioState, sampleRate int, seconds float64) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	driver, err := inteng.New(s, intwave.NewTables(sampleRate), sampleRate)
	if err != nil {
		return nil, err
	}
	s.SetPlaying(true)
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	driver.Process(out)
	return out, nil
}

// WriteWAV saves interleaved stereo samples as 16-bit PCM.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	return intsf.SaveWAV(path, samples, sampleRate, 2)
}
