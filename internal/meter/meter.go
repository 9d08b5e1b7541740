// Package meter measures peak and RMS levels of rendered stereo buffers.
// It is used off the audio goroutine: by offline render reports and by the
// CLI level display.
package meter

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Levels is one measurement of a stereo buffer.
type Levels struct {
	PeakL, PeakR float32
	RMSL, RMSR   float32
}

// DB converts a linear level to decibels full scale. Silence is -Inf.
func DB(v float32) float64 {
	return 20 * math.Log10(float64(v))
}

// Meter holds reusable scratch so repeated measurements do not allocate
// once the largest buffer has been seen.
type Meter struct {
	left, right []float32
	sq          []float32
}

func New() *Meter { return &Meter{} }

// Measure splits interleaved into channels and measures each.
func (m *Meter) Measure(interleaved []float32) Levels {
	frames := len(interleaved) / 2
	if frames == 0 {
		return Levels{}
	}
	m.left = grow(m.left, frames)
	m.right = grow(m.right, frames)
	m.sq = grow(m.sq, frames)
	for i := 0; i < frames; i++ {
		m.left[i] = interleaved[2*i]
		m.right[i] = interleaved[2*i+1]
	}
	var lv Levels
	lv.PeakL, lv.RMSL = m.channel(m.left)
	lv.PeakR, lv.RMSR = m.channel(m.right)
	return lv
}

func (m *Meter) channel(x []float32) (peak, rms float32) {
	sq := vek32.Mul_Into(m.sq, x, x)
	rms = float32(math.Sqrt(float64(vek32.Mean(sq))))
	vek32.Abs_Inplace(x)
	return vek32.Max(x), rms
}

func grow(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}

// Measure is a one-shot convenience around Meter.
func Measure(interleaved []float32) Levels {
	return New().Measure(interleaved)
}
