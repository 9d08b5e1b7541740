// Package samplefile reads sample buffers from WAV and MP3 files and writes
// rendered audio back out as 16-bit PCM WAV.
package samplefile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dh1tw/gosamplerate"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

var ErrUnsupportedFormat = errors.New("unsupported audio file format")

// Audio is a decoded interleaved buffer scaled to [-1, 1].
type Audio struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames.
func (a *Audio) Frames() int {
	if a.Channels == 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// Mono averages the channels of every frame.
func (a *Audio) Mono() []float32 {
	if a.Channels <= 1 {
		return append([]float32(nil), a.Samples...)
	}
	out := make([]float32, a.Frames())
	inv := 1 / float32(a.Channels)
	for f := range out {
		var sum float32
		for c := 0; c < a.Channels; c++ {
			sum += a.Samples[f*a.Channels+c]
		}
		out[f] = sum * inv
	}
	return out
}

// Load decodes path, downmixes to mono and resamples to sampleRate.
func Load(path string, sampleRate int) ([]float32, error) {
	a, err := Decode(path)
	if err != nil {
		return nil, err
	}
	mono := a.Mono()
	if a.SampleRate == sampleRate || len(mono) == 0 {
		return mono, nil
	}
	out, err := Resample(mono, 1, a.SampleRate, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("resample %s: %w", path, err)
	}
	return out, nil
}

// Decode picks a decoder from the file extension.
func Decode(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		a, err := DecodeWAV(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return a, nil
	case ".mp3":
		a, err := DecodeMP3(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// DecodeWAV reads integer PCM and scales by the range of the source bit
// depth.
func DecodeWAV(r io.ReadSeeker) (*Audio, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav stream", ErrUnsupportedFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, depth)
	}
	scale := float32(1) / float32(int64(1)<<(depth-1))
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		if depth == 8 {
			// 8-bit wav is unsigned
			v -= 128
		}
		out[i] = float32(v) * scale
	}
	return &Audio{
		Samples:    out,
		Channels:   buf.Format.NumChannels,
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// DecodeMP3 reads the whole stream. go-mp3 always yields 16-bit stereo.
func DecodeMP3(r io.Reader) (*Audio, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, err
	}
	n := len(raw) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}
	return &Audio{Samples: out, Channels: 2, SampleRate: d.SampleRate()}, nil
}

// Resample converts interleaved samples between rates.
func Resample(samples []float32, channels, from, to int) ([]float32, error) {
	ratio := float64(to) / float64(from)
	if !gosamplerate.IsValidRatio(ratio) {
		return nil, fmt.Errorf("invalid resample ratio %f", ratio)
	}
	return gosamplerate.Simple(samples, ratio, channels, gosamplerate.SRC_SINC_MEDIUM_QUALITY)
}

// WriteWAV encodes interleaved float samples as 16-bit PCM, rounding to the
// nearest integer after clamping to [-1, 1].
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate, channels int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = ToPCM16(s)
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// SaveWAV writes a WAV file at path.
func SaveWAV(path string, samples []float32, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, samples, sampleRate, channels); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ToPCM16 maps [-1, 1] to the signed 16-bit range with rounding.
func ToPCM16(s float32) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int(math.Round(float64(s) * math.MaxInt16))
}
